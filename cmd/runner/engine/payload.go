package engine

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/genomeai/platform/cmd/runner/sourcecache"
	"github.com/genomeai/platform/common/models"
	"github.com/go-playground/validator/v10"
)

// nfcoreDefaults is the payload a bare POST /run/nfcore_dna_seq runs with.
// The request body is applied over it as an RFC 7386 merge patch, so an
// explicit "revision": null selects the default branch.
var nfcoreDefaults = []byte(`{
	"repo": "https://github.com/nf-core/sarek",
	"revision": "3.5.1",
	"profile": "test,docker",
	"stub_run": true,
	"docker_user": "0:0",
	"outdir": null,
	"extra_args": null,
	"max_memory": "3.GB",
	"max_cpus": 2,
	"max_time": "2.h"
}`)

// PayloadError marks a request body that cannot become a job
type PayloadError struct {
	Err error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("invalid payload: %v", e.Err)
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

var validate = validator.New()

// DecodeNFCore merges body over the defaults and validates the result.
// An empty body yields the defaults.
func DecodeNFCore(body []byte) (*models.NFCoreRequest, error) {
	merged := nfcoreDefaults
	if len(bytes.TrimSpace(body)) > 0 {
		var err error
		merged, err = jsonpatch.MergePatch(nfcoreDefaults, body)
		if err != nil {
			return nil, &PayloadError{Err: err}
		}
	}

	var req models.NFCoreRequest
	if err := json.Unmarshal(merged, &req); err != nil {
		return nil, &PayloadError{Err: err}
	}

	if req.Revision != nil && *req.Revision == "" {
		req.Revision = nil
	}

	if err := validate.Struct(&req); err != nil {
		return nil, &PayloadError{Err: err}
	}

	if err := sourcecache.CheckSource(req.Repo, req.RevisionOrEmpty()); err != nil {
		return nil, &PayloadError{Err: err}
	}

	return &req, nil
}
