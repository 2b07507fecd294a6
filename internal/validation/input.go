package validation

import (
	"mime/multipart"
	"net/http"
	"strings"
)

// sensitiveFields are never echoed back after a failed submission.
var sensitiveFields = map[string]bool{
	"password":              true,
	"password_confirmation": true,
	"current_password":      true,
	"mailPassword":          true,
}

// Input is the submitted form: string values plus optional uploads.
type Input struct {
	values map[string]string
	files  map[string]*multipart.FileHeader
}

func NewInput(values map[string]string) Input {
	in := Input{values: map[string]string{}, files: map[string]*multipart.FileHeader{}}
	for k, v := range values {
		in.values[k] = v
	}
	return in
}

// FromRequest reads the first value of every form field. The form must
// already be parsed.
func FromRequest(r *http.Request, fields ...string) Input {
	in := NewInput(nil)
	form := r.PostForm
	if r.MultipartForm != nil {
		form = r.MultipartForm.Value
	}
	for _, f := range fields {
		if vs, ok := form[f]; ok && len(vs) > 0 {
			in.values[f] = vs[0]
		}
	}
	if r.MultipartForm != nil {
		for _, f := range fields {
			if fhs := r.MultipartForm.File[f]; len(fhs) > 0 {
				in.files[f] = fhs[0]
			}
		}
	}
	return in
}

func (in Input) Get(name string) string { return in.values[name] }

// Trimmed returns the value with surrounding whitespace removed.
func (in Input) Trimmed(name string) string { return strings.TrimSpace(in.values[name]) }

func (in Input) File(name string) *multipart.FileHeader { return in.files[name] }

func (in Input) HasFile(name string) bool {
	fh := in.files[name]
	return fh != nil && fh.Size > 0
}

// Without returns a copy lacking the named values.
func (in Input) Without(names ...string) Input {
	out := NewInput(in.values)
	for k, v := range in.files {
		out.files[k] = v
	}
	for _, n := range names {
		delete(out.values, n)
	}
	return out
}

// Preserved is the submitted input safe to re-display.
func (in Input) Preserved() map[string]string {
	out := make(map[string]string, len(in.values))
	for k, v := range in.values {
		if sensitiveFields[k] {
			continue
		}
		out[k] = v
	}
	return out
}
