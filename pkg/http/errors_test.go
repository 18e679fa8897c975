package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"MarketLab/internal/domain"
)

func TestMapDomainErrorDataUnavailable(t *testing.T) {
	err := fmt.Errorf("lookup XYZ: %w", domain.ErrDataUnavailable)
	appErr := MapDomainError(err)
	if appErr.Status != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", appErr.Status)
	}
	if appErr.Code != "ERR_DATA_UNAVAILABLE" {
		t.Fatalf("unexpected code %s", appErr.Code)
	}
}

func TestMapDomainErrorModelNotReady(t *testing.T) {
	appErr := MapDomainError(domain.ErrModelNotReady)
	if appErr.Status != http.StatusConflict {
		t.Fatalf("expected 409, got %d", appErr.Status)
	}
}

func TestMapDomainErrorInsufficientData(t *testing.T) {
	appErr := MapDomainError(domain.NewInsufficientData("train", 40, 100))
	if appErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", appErr.Status)
	}
	if appErr.Params["required"] != 100 || appErr.Params["got"] != 40 {
		t.Fatalf("expected required/got params, have %v", appErr.Params)
	}
}

func TestMapDomainErrorUnknownIsInternal(t *testing.T) {
	appErr := MapDomainError(errors.New("boom"))
	if appErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", appErr.Status)
	}
	if appErr.Message == "boom" {
		t.Fatalf("internal details must not leak into the message")
	}
}
