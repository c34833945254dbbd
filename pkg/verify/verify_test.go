package verify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

const umdBundle = `(function (root, factory) {
  if (typeof exports === "object" && typeof module === "object") module.exports = factory();
  else if (typeof define === "function" && define.amd) define([], factory);
  else if (typeof exports === "object") exports["VueCollectionCluster"] = factory();
  else root["VueCollectionCluster"] = factory();
})(typeof self !== "undefined" ? self : this, function () {
  console.log("loading", 1);
  const name = "vue-collection-cluster";
  return { name, props: ["collections"], template: ` + "`<ul></ul>`" + ` };
});`

func TestLibrary_Defined(t *testing.T) {
	report, err := Library(context.Background(), umdBundle, "VueCollectionCluster", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.Defined {
		t.Fatal("expected global to be defined")
	}
	if report.Type != "object" {
		t.Errorf("expected type 'object', got '%s'", report.Type)
	}
	if strings.Join(report.Keys, ",") != "name,props,template" {
		t.Errorf("expected sorted keys, got %v", report.Keys)
	}
	if len(report.Console) != 1 || report.Console[0] != "loading 1" {
		t.Errorf("expected captured console output, got %v", report.Console)
	}
}

func TestLibrary_Function(t *testing.T) {
	report, err := Library(context.Background(), "window.Cluster = function () {};", "Cluster", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Type != "function" {
		t.Errorf("expected type 'function', got '%s'", report.Type)
	}
	if report.Keys != nil {
		t.Errorf("expected no keys for a function, got %v", report.Keys)
	}
}

func TestLibrary_NotDefined(t *testing.T) {
	report, err := Library(context.Background(), "var x = 1;", "Missing", time.Second)
	if !errors.Is(err, ErrNotDefined) {
		t.Fatalf("expected ErrNotDefined, got %v", err)
	}
	if report == nil || report.Defined || report.Type != "undefined" {
		t.Errorf("expected undefined report, got %+v", report)
	}
}

func TestLibrary_RuntimeError(t *testing.T) {
	_, err := Library(context.Background(), "document.createElement('div');", "X", time.Second)
	if err == nil || !strings.Contains(err.Error(), "runtime error") {
		t.Errorf("expected runtime error, got %v", err)
	}
}

func TestLibrary_SyntaxError(t *testing.T) {
	_, err := Library(context.Background(), "var = ;", "X", time.Second)
	if err == nil || !strings.Contains(err.Error(), "syntax error") {
		t.Errorf("expected syntax error, got %v", err)
	}
}

func TestLibrary_Timeout(t *testing.T) {
	_, err := Library(context.Background(), "while (true) {}", "X", 50*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestLibrary_RequiresName(t *testing.T) {
	if _, err := Library(context.Background(), "", "", time.Second); err == nil {
		t.Error("expected error for empty name")
	}
}
