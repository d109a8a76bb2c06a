// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"github.com/samber/oops"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/youngcoder/youngcoder/internal/auth"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// signUpRequest is the sign-up body. Fields without omitempty are required.
type signUpRequest struct {
	Email      string  `json:"email" jsonschema:"format=email"`
	Password   string  `json:"password" jsonschema:"minLength=6"`
	Name       string  `json:"name" jsonschema:"minLength=1"`
	Role       string  `json:"role" jsonschema:"enum=student,enum=teacher,enum=parent,enum=school_admin"`
	AgeGroup   *string `json:"ageGroup,omitempty" jsonschema:"enum=6-11,enum=12-17"`
	ChildName  *string `json:"childName,omitempty"`
	SchoolName *string `json:"schoolName,omitempty"`
	PackageID  *string `json:"packageId,omitempty"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type schemas struct {
	signUp *jschema.Schema
	signIn *jschema.Schema
}

func compileSchemas() (*schemas, error) {
	signUp, err := compileSchema("signup.json", &signUpRequest{})
	if err != nil {
		return nil, err
	}
	signIn, err := compileSchema("signin.json", &signInRequest{})
	if err != nil {
		return nil, err
	}
	return &schemas{signUp: signUp, signIn: signIn}, nil
}

// compileSchema reflects a JSON Schema from v and compiles it with format
// assertions on. Unknown properties are allowed.
func compileSchema(name string, v any) (*jschema.Schema, error) {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		Anonymous:                 true,
		AllowAdditionalProperties: true,
	}
	data, err := json.Marshal(r.Reflect(v))
	if err != nil {
		return nil, oops.Code("WEB_SCHEMA_FAILED").With("schema", name).Wrap(err)
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, oops.Code("WEB_SCHEMA_FAILED").With("schema", name).Wrap(err)
	}

	c := jschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(name, doc); err != nil {
		return nil, oops.Code("WEB_SCHEMA_FAILED").With("schema", name).Wrap(err)
	}
	sch, err := c.Compile(name)
	if err != nil {
		return nil, oops.Code("WEB_SCHEMA_FAILED").With("schema", name).Wrap(err)
	}
	return sch, nil
}

// fieldCheck inspects the raw JSON document for violations the schema
// cannot express.
type fieldCheck func(doc any) []auth.FieldError

// passwordBytes rejects passwords longer than bcrypt accepts. The schema's
// maxLength counts code points, not bytes.
func passwordBytes(doc any) []auth.FieldError {
	obj, _ := doc.(map[string]any)
	pw, ok := obj["password"].(string)
	if !ok || len(pw) <= auth.MaxPasswordBytes {
		return nil
	}
	return []auth.FieldError{auth.PasswordTooLong()}
}

// decodeRequest reads the body, validates it against sch and checks, then
// decodes it into dst. Every problem is reported as one auth validation
// error listing all violated fields.
func decodeRequest(r *http.Request, sch *jschema.Schema, dst any, checks ...fieldCheck) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return auth.NewValidationError(auth.FieldError{Message: "Request body could not be read"})
	}
	if len(body) > maxBodyBytes {
		return auth.NewValidationError(auth.FieldError{Message: "Request body is too large"})
	}

	doc, err := jschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return auth.NewValidationError(auth.FieldError{Message: "Request body must be valid JSON"})
	}

	var violations []auth.FieldError
	if err := sch.Validate(doc); err != nil {
		var ve *jschema.ValidationError
		if !errors.As(err, &ve) {
			return oops.Code("WEB_VALIDATE_FAILED").Wrap(err)
		}
		violations = fieldErrors(ve)
	}
	for _, check := range checks {
		violations = append(violations, check(doc)...)
	}
	if len(violations) > 0 {
		sort.SliceStable(violations, func(i, j int) bool { return violations[i].Field < violations[j].Field })
		return auth.NewValidationError(violations...)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return auth.NewValidationError(auth.FieldError{Message: "Request body must be valid JSON"})
	}
	return nil
}

var printer = message.NewPrinter(language.English)

// fieldErrors flattens a validation error tree into one entry per failed
// leaf. A missing property is reported on the property itself.
func fieldErrors(ve *jschema.ValidationError) []auth.FieldError {
	var out []auth.FieldError
	var walk func(*jschema.ValidationError)
	walk = func(e *jschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		if req, ok := e.ErrorKind.(*kind.Required); ok {
			for _, prop := range req.Missing {
				out = append(out, auth.FieldError{
					Field:   fieldPath(append(e.InstanceLocation[:len(e.InstanceLocation):len(e.InstanceLocation)], prop)),
					Message: "Required",
				})
			}
			return
		}
		out = append(out, auth.FieldError{
			Field:   fieldPath(e.InstanceLocation),
			Message: e.ErrorKind.LocalizedString(printer),
		})
	}
	walk(ve)
	return out
}

func fieldPath(loc []string) string {
	return strings.Join(loc, ".")
}
