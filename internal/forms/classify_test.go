package forms

import (
	"errors"
	"testing"
)

func TestClassifyFileAcceptsPDFUnderLimit(t *testing.T) {
	if err := ClassifyFile(9_999_999, "application/pdf"); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
	if err := ClassifyFile(MaxFileBytes, "application/pdf"); err != nil {
		t.Fatalf("the limit itself is allowed, got %v", err)
	}
}

func TestClassifyFileSizeCheckedBeforeType(t *testing.T) {
	// An oversized non-PDF reports the size problem, not the type.
	err := ClassifyFile(10_000_001, "image/png")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestClassifyFileRejectsOversizedPDF(t *testing.T) {
	if err := ClassifyFile(10_000_001, "application/pdf"); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestClassifyFileRejectsNonPDF(t *testing.T) {
	if err := ClassifyFile(1000, "image/png"); !errors.Is(err, ErrFileType) {
		t.Fatalf("expected ErrFileType, got %v", err)
	}
	if err := ClassifyFile(1000, "application/pdf; charset=binary"); !errors.Is(err, ErrFileType) {
		t.Fatalf("parameterized content types are not accepted, got %v", err)
	}
}
