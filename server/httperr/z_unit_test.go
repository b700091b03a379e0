// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httperr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zintix-labs/dicelab/errs"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"deadline", errs.Wrap(context.DeadlineExceeded, "x"), http.StatusGatewayTimeout},
		{"canceled", context.Canceled, http.StatusRequestTimeout},
		{"not found", errs.Wrap(errs.NotFoundf("run %d", 1), "get"), http.StatusNotFound},
		{"validation", errs.NewValidation("bad"), http.StatusBadRequest},
		{"type", errs.NewType("bad"), http.StatusBadRequest},
		{"warn", errs.NewWarn("bad"), http.StatusBadRequest},
		{"fatal", errs.NewFatal("boom"), http.StatusInternalServerError},
		{"foreign", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := StatusCode(c.err); got != c.want {
			t.Fatalf("%s: status = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestErrsWrites(t *testing.T) {
	rec := httptest.NewRecorder()
	Errs(rec, errs.NewNotFound("missing"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	Errs(rec, nil)
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatal("nil error must not write")
	}
}
