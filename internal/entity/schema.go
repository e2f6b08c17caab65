package entity

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildRecordJSONSchema returns the JSON-Schema describing a serialized Record.
// It is used to check records before they are persisted or printed.
func BuildRecordJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	date := map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
	money := map[string]any{"type": "number", "minimum": 0}

	tax := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"tax_a": money, "tax_b": money, "tax_c": money,
			"tax_d": money, "tax_e": money, "tax_f": money,
		},
		"required": []string{"tax_a", "tax_b", "tax_c", "tax_d", "tax_e", "tax_f"},
	}
	field := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"strategy":   map[string]any{"type": "string", "enum": []string{"text", "layout", "ocr", "default"}},
			"raw_text":   str,
		},
		"required": []string{"confidence", "strategy"},
	}

	props := map[string]any{
		"id":                str,
		"tan":               str,
		"deductor_name":     str,
		"assessment_year":   map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}$`},
		"financial_year":    map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}$`},
		"major_head":        str,
		"minor_head":        str,
		"nature_of_payment": str,
		"total_amount":      map[string]any{"type": "number"},
		"amount_in_words":   str,
		"cin":               str,
		"bsr_code":          str,
		"challan_no":        str,
		"date_of_deposit":   date,
		"tender_date":       date,
		"bank_name":         str,
		"bank_ref_no":       str,
		"mode_of_payment":   str,
		"tax_breakup":       tax,
		"source_file":       str,
		"row_confidence":    map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		"validation_flag":   map[string]any{"type": "string", "enum": []string{"OK", "FLAG", "PENDING"}},
		"review_status": map[string]any{
			"type": "string",
			"enum": []string{"PENDING_REVIEW", "ACCEPTED", "REJECTED", "CORRECTED"},
		},
		"notes":             str,
		"field_confidences": map[string]any{"type": "object", "additionalProperties": field},
		"record_hash":       map[string]any{"type": "string", "pattern": `^([0-9a-f]{16})?$`},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"id", "tax_breakup", "source_file", "row_confidence", "validation_flag", "review_status", "record_hash"},
	}
}

var (
	recordSchemaOnce sync.Once
	recordSchema     *jsonschema.Schema
	recordSchemaErr  error
)

func compiledRecordSchema() (*jsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		b, err := json.Marshal(BuildRecordJSONSchema())
		if err != nil {
			recordSchemaErr = eris.Wrap(err, "marshal schema")
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("record.json", bytes.NewReader(b)); err != nil {
			recordSchemaErr = eris.Wrap(err, "add schema")
			return
		}
		recordSchema, recordSchemaErr = compiler.Compile("record.json")
		if recordSchemaErr != nil {
			recordSchemaErr = eris.Wrap(recordSchemaErr, "compile schema")
		}
	})
	return recordSchema, recordSchemaErr
}

// ValidateRecordJSON validates serialized record JSON against BuildRecordJSONSchema.
func ValidateRecordJSON(data []byte) error {
	schema, err := compiledRecordSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return eris.Wrap(err, "unmarshal record")
	}
	if err := schema.Validate(v); err != nil {
		return eris.Wrap(err, "record does not match schema")
	}
	return nil
}

// MarshalValidated serializes r and checks it against the record schema.
func MarshalValidated(r *Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "marshal record")
	}
	if err := ValidateRecordJSON(data); err != nil {
		return nil, err
	}
	return data, nil
}
