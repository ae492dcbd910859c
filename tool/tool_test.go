package tool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func demoTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "demo",
		Parameters: []Parameter{
			{Name: "city", Type: "string", Description: "city name", Required: true},
			{Name: "unit", Type: "string", Description: "unit", Enum: []string{"c", "f"}},
		},
		Handler: func(_ context.Context, args map[string]any) Result {
			return OK(map[string]any{"city": args["city"]})
		},
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(demoTool("weather")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(demoTool("weather")); err == nil {
		t.Error("duplicate Register() should fail")
	}
	if err := r.Register(&Tool{}); err == nil {
		t.Error("Register() with empty name should fail")
	}
	if _, ok := r.Get("weather"); !ok {
		t.Error("Get(weather) should find the tool")
	}
}

func TestToJSONSchema(t *testing.T) {
	schema := demoTool("weather").ToJSONSchema()
	if schema["type"] != "function" {
		t.Errorf("schema type = %v", schema["type"])
	}
	fn := schema["function"].(map[string]any)
	if fn["name"] != "weather" {
		t.Errorf("function name = %v", fn["name"])
	}
	params := fn["parameters"].(map[string]any)
	props := params["properties"].(map[string]any)
	if _, ok := props["city"]; !ok {
		t.Error("schema missing city property")
	}
	unit := props["unit"].(map[string]any)
	if enum, ok := unit["enum"].([]string); !ok || len(enum) != 2 {
		t.Errorf("unit enum = %v", unit["enum"])
	}
	required := params["required"].([]string)
	if len(required) != 1 || required[0] != "city" {
		t.Errorf("required = %v", required)
	}
}

func TestDispatch(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(demoTool("weather")); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	res := r.Dispatch(ctx, "weather", map[string]any{"city": "Haifa"})
	if !res.Success {
		t.Fatalf("dispatch failed: %+v", res.Error)
	}

	res = r.Dispatch(ctx, "nope", nil)
	if res.Success || res.Error.Code != CodeUnknownTool {
		t.Errorf("unknown tool result = %+v", res)
	}

	res = r.Dispatch(ctx, "weather", map[string]any{})
	if res.Success || res.Error.Code != CodeInvalidArguments {
		t.Errorf("missing argument result = %+v", res)
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&Tool{
		Name:        "explode",
		Description: "always panics",
		Handler: func(context.Context, map[string]any) Result {
			panic("boom")
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	res := r.Dispatch(context.Background(), "explode", nil)
	if res.Success || res.Error.Code != CodeExecutionError {
		t.Fatalf("panic result = %+v", res)
	}
	if !strings.Contains(res.Error.Message, "boom") {
		t.Errorf("panic message = %q", res.Error.Message)
	}
}

func TestResultJSON(t *testing.T) {
	raw := OK(map[string]any{"n": 1}).JSON()
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["success"] != true {
		t.Errorf("success = %v", decoded["success"])
	}
	if _, present := decoded["error"]; present {
		t.Error("success result should omit error")
	}

	raw = Fail(CodeNotFound, "missing").JSON()
	decoded = nil
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["success"] != false {
		t.Errorf("success = %v", decoded["success"])
	}
	errObj := decoded["error"].(map[string]any)
	if errObj["code"] != "NOT_FOUND" || errObj["message"] != "missing" {
		t.Errorf("error = %v", errObj)
	}
	if _, present := decoded["data"]; present {
		t.Error("failure result should omit data")
	}
}

func TestDecodeArgs(t *testing.T) {
	type weatherArgs struct {
		City string `json:"city"`
		Unit string `json:"unit"`
	}
	var dst weatherArgs
	if err := DecodeArgs(map[string]any{"city": "Haifa", "unit": "c"}, &dst); err != nil {
		t.Fatalf("DecodeArgs error = %v", err)
	}
	if dst.City != "Haifa" || dst.Unit != "c" {
		t.Errorf("decoded = %+v", dst)
	}

	if err := DecodeArgs(map[string]any{"city": "Haifa", "planet": "Mars"}, &dst); err == nil {
		t.Error("DecodeArgs should reject unknown keys")
	}
}
