package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "content store token missing").
			WithSeverity(SeverityFatal).
			WithContext("env", "GITHUB_TOKEN").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "content store token missing" {
			t.Errorf("unexpected message %q", err.Message())
		}
		if env, ok := err.Context().GetString("env"); !ok || env != "GITHUB_TOKEN" {
			t.Errorf("expected context env=GITHUB_TOKEN, got %v", env)
		}
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		base := ConflictError("version token is stale").Build()
		wrapped := fmt.Errorf("write primary: %w", base)

		if !IsClassified(wrapped) {
			t.Fatal("expected wrapped error to be classified")
		}
		if !HasCategory(wrapped, CategoryConflict) {
			t.Error("expected conflict category")
		}
		if IsTransient(wrapped) {
			t.Error("conflicts must not be transient")
		}
		if GetCategory(errors.New("plain")) != CategoryInternal {
			t.Error("unclassified errors default to internal")
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	originalErr := errors.New("connection reset")
	err := WrapError(originalErr, CategoryNetwork, "read target failed").
		Warning().
		Retryable().
		WithContext("target", "public").
		WithContext("attempt", 2).
		Build()

	if err.RetryStrategy() != RetryBackoff {
		t.Errorf("expected retry strategy %s, got %s", RetryBackoff, err.RetryStrategy())
	}
	if !err.CanRetry() || !err.IsTransient() {
		t.Error("expected retryable transient error")
	}
	if !errors.Is(err, originalErr) {
		t.Error("expected error to wrap original error")
	}
	if got := err.Error(); got != "[network:warning] read target failed: connection reset" {
		t.Errorf("unexpected Error() output %q", got)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *ClassifiedError
		category  ErrorCategory
		transient bool
		fatal     bool
	}{
		{"config", ConfigError("x").Build(), CategoryConfig, false, true},
		{"validation", ValidationError("x").Build(), CategoryValidation, false, true},
		{"auth", AuthError("x").Build(), CategoryAuth, false, false},
		{"conflict", ConflictError("x").Build(), CategoryConflict, false, false},
		{"network", NetworkError("x").Build(), CategoryNetwork, true, false},
		{"store", StoreError("x").Build(), CategoryStore, true, false},
		{"store not retryable", StoreError("x").NotRetryable().Build(), CategoryStore, false, false},
		{"deploy", DeployError("x").Build(), CategoryDeploy, false, false},
		{"publish", PublishError("x").Build(), CategoryPublish, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Category() != tt.category {
				t.Errorf("category = %s, want %s", tt.err.Category(), tt.category)
			}
			if tt.err.IsTransient() != tt.transient {
				t.Errorf("transient = %v, want %v", tt.err.IsTransient(), tt.transient)
			}
			if tt.err.IsFatal() != tt.fatal {
				t.Errorf("fatal = %v, want %v", tt.err.IsFatal(), tt.fatal)
			}
		})
	}
}

func TestSentinelComparison(t *testing.T) {
	sentinel := ValidationError("invalid site data").Build()
	withCtx := sentinel.WithContext("field", "sections")

	if !errors.Is(withCtx, sentinel) {
		t.Error("errors with same category and message should match")
	}
	if _, ok := sentinel.Context().Get("field"); ok {
		t.Error("WithContext must not mutate the receiver")
	}
}

func TestErrorContextMerge(t *testing.T) {
	a := ErrorContext{"a": 1, "b": 1}
	b := ErrorContext{"b": 2}
	merged := a.Merge(b)
	if merged["a"] != 1 || merged["b"] != 2 {
		t.Errorf("unexpected merge result %v", merged)
	}
	if a["b"] != 1 {
		t.Error("merge must not mutate the receiver")
	}
	var empty ErrorContext
	if got := empty.Set("k", "v"); got["k"] != "v" {
		t.Error("Set on nil context should allocate")
	}
}
