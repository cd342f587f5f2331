package validator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MaxBatchSize is the largest accepted bulk-create batch.
const MaxBatchSize = 100

// ValidateBulkCreate validates a JSON array of create bodies.
//
// Every element is validated, in parallel, and all element diagnostics are
// returned together with paths prefixed by the element index ("[3].url"),
// in input order. The batch is rejected as a whole if any element fails.
func ValidateBulkCreate(raw []byte) ([]*CreateLinkInput, error) {
	trimmed := bytes.TrimSpace(raw)
	var elems []json.RawMessage
	if len(trimmed) == 0 || trimmed[0] != '[' || json.Unmarshal(trimmed, &elems) != nil {
		return nil, Errors{invalidType("", "a JSON array of links")}
	}

	if len(elems) == 0 {
		return nil, Errors{{
			Code:    CodeEmptyBatch,
			Message: "batch must contain at least one link",
		}}
	}
	if len(elems) > MaxBatchSize {
		return nil, Errors{{
			Code:    CodeBatchTooLarge,
			Message: fmt.Sprintf("batch must contain at most %d links, got %d", MaxBatchSize, len(elems)),
			Value:   fmt.Sprint(len(elems)),
		}}
	}

	inputs := make([]*CreateLinkInput, len(elems))
	perElem := make([]Errors, len(elems))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, elem := range elems {
		g.Go(func() error {
			in, err := ValidateCreate(elem)
			if err != nil {
				verrs, _ := AsErrors(err)
				perElem[i] = verrs.WithPrefix(fmt.Sprintf("[%d]", i))
				return nil
			}
			inputs[i] = in
			return nil
		})
	}
	_ = g.Wait() // element goroutines never return an error

	var all Errors
	for _, e := range perElem {
		all = append(all, e...)
	}
	if err := all.orNil(); err != nil {
		return nil, err
	}
	return inputs, nil
}
