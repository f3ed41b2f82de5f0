package jobschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/celltrans/internal/config"
	"horse.fit/celltrans/internal/translation"
)

//go:embed translate_job.schema.json
var translateJobSchemaJSON string

//go:embed backends_update.schema.json
var backendsUpdateSchemaJSON string

const (
	translateJobSchemaName   = "translate_job.schema.json"
	backendsUpdateSchemaName = "backends_update.schema.json"
)

// TranslateJob is the request body of a translate call.
type TranslateJob struct {
	SourceLang   string   `json:"source_lang,omitempty"`
	TargetLang   string   `json:"target_lang,omitempty"`
	SourceColumn string   `json:"source_column,omitempty"`
	TargetColumn string   `json:"target_column,omitempty"`
	Backends     []string `json:"backends,omitempty"`
	Workers      int      `json:"workers,omitempty"`
	Force        bool     `json:"force,omitempty"`
	Rows         []JobRow `json:"rows"`
}

type JobRow struct {
	Row  int    `json:"row"`
	Text string `json:"text"`
}

// RowJob converts the payload into an orchestrator job.
func (j *TranslateJob) RowJob() translation.RowJob {
	rows := make([]translation.Row, 0, len(j.Rows))
	for _, row := range j.Rows {
		rows = append(rows, translation.Row{Index: row.Row, Text: row.Text})
	}
	return translation.RowJob{
		SourceLang:   j.SourceLang,
		TargetLang:   j.TargetLang,
		SourceColumn: j.SourceColumn,
		TargetColumn: j.TargetColumn,
		Backends:     j.Backends,
		Rows:         rows,
	}
}

// RunOptions returns the per-run options carried by the payload.
func (j *TranslateJob) RunOptions() translation.RunOptions {
	return translation.RunOptions{
		Workers:  j.Workers,
		Backends: j.Backends,
		Force:    j.Force,
	}
}

var (
	compileOnce     sync.Once
	compiledSchemas map[string]*jsonschema.Schema
	compileErr      error
)

func ValidateTranslateJob(payload []byte) (*TranslateJob, error) {
	normalized, err := validate(translateJobSchemaName, payload)
	if err != nil {
		return nil, err
	}

	var job TranslateJob
	if err := json.Unmarshal(normalized, &job); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := validateJobSemantics(&job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ValidateBackendsUpdate checks a backend configuration replacement body.
func ValidateBackendsUpdate(payload []byte) (*config.BackendsFile, error) {
	normalized, err := validate(backendsUpdateSchemaName, payload)
	if err != nil {
		return nil, err
	}
	// JSON is valid YAML, so the backends file parser applies unchanged.
	return config.ParseBackendsFile(normalized, "request body")
}

func validate(name string, payload []byte) ([]byte, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema(name)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}
	return normalized, nil
}

func loadSchema(name string) (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		sources := map[string]string{
			translateJobSchemaName:   translateJobSchemaJSON,
			backendsUpdateSchemaName: backendsUpdateSchemaJSON,
		}
		for resource, body := range sources {
			if err := compiler.AddResource(resource, strings.NewReader(body)); err != nil {
				compileErr = fmt.Errorf("add schema resource %s: %w", resource, err)
				return
			}
		}

		schemas := make(map[string]*jsonschema.Schema, len(sources))
		for resource := range sources {
			schema, err := compiler.Compile(resource)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", resource, err)
				return
			}
			schemas[resource] = schema
		}
		compiledSchemas = schemas
	})

	if compileErr != nil {
		return nil, compileErr
	}
	schema, ok := compiledSchemas[name]
	if !ok {
		return nil, fmt.Errorf("schema %s not initialized", name)
	}
	return schema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateJobSemantics(job *TranslateJob) error {
	if job == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(job.TargetLang) == "" && strings.TrimSpace(job.TargetColumn) == "" {
		return fmt.Errorf("target_lang or target_column must not be empty")
	}

	seen := make(map[int]struct{}, len(job.Rows))
	for i, row := range job.Rows {
		if _, dup := seen[row.Row]; dup {
			return fmt.Errorf("rows[%d].row %d is duplicated", i, row.Row)
		}
		seen[row.Row] = struct{}{}
	}
	for i, backend := range job.Backends {
		if strings.TrimSpace(backend) == "" {
			return fmt.Errorf("backends[%d] must not be empty", i)
		}
	}
	return nil
}

// FieldErrors flattens a validation error into instance path -> message.
func FieldErrors(err error) map[string]string {
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return map[string]string{"body": err.Error()}
	}

	out := map[string]string{}
	collectLeafErrors(verr, out)
	if len(out) == 0 {
		out["body"] = verr.Message
	}
	return out
}

func collectLeafErrors(verr *jsonschema.ValidationError, out map[string]string) {
	if len(verr.Causes) == 0 {
		field := strings.Trim(strings.ReplaceAll(verr.InstanceLocation, "/", "."), ".")
		if field == "" {
			field = "body"
		}
		if existing, ok := out[field]; ok {
			messages := []string{existing, verr.Message}
			sort.Strings(messages)
			out[field] = strings.Join(messages, "; ")
			return
		}
		out[field] = verr.Message
		return
	}
	for _, cause := range verr.Causes {
		collectLeafErrors(cause, out)
	}
}
