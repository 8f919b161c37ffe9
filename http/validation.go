package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"termdeposit/customer"
)

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 请求体校验失败，对应 422
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request body"
	}
	return fmt.Sprintf("invalid request body: %s: %s", e.Fields[0].Field, e.Fields[0].Message)
}

// RecordValidator 使用 JSON Schema 校验客户记录
type RecordValidator struct {
	schema *gojsonschema.Schema
}

// NewRecordValidator 编译客户记录的 schema
func NewRecordValidator() (*RecordValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(customer.Schema()))
	if err != nil {
		return nil, fmt.Errorf("compile customer schema: %w", err)
	}
	return &RecordValidator{schema: schema}, nil
}

// Decode 校验并解码请求体
func (v *RecordValidator) Decode(body []byte) (customer.Record, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return customer.Record{}, &ValidationError{Fields: []FieldError{{Field: "body", Message: "invalid JSON: " + err.Error()}}}
	}

	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return customer.Record{}, &ValidationError{Fields: []FieldError{{Field: "body", Message: err.Error()}}}
	}
	if !result.Valid() {
		fields := make([]FieldError, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			fields = append(fields, FieldError{Field: fieldName(re), Message: re.Description()})
		}
		sort.SliceStable(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
		return customer.Record{}, &ValidationError{Fields: fields}
	}

	var record customer.Record
	if err := json.Unmarshal(body, &record); err != nil {
		var enumErr *customer.EnumError
		if errors.As(err, &enumErr) {
			return customer.Record{}, &ValidationError{Fields: []FieldError{{Field: enumErr.Field, Message: err.Error()}}}
		}
		return customer.Record{}, &ValidationError{Fields: []FieldError{{Field: "body", Message: err.Error()}}}
	}
	return record, nil
}

// fieldName 对 required 错误返回缺失的属性名
func fieldName(re gojsonschema.ResultError) string {
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok {
			return prop
		}
	}
	return re.Field()
}
