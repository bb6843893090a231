package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/items" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"id":1,"title":"Lâmpadas","image_url":"http://x/lampadas.svg"},{"id":2,"title":"Pilhas e Baterias","image_url":"http://x/baterias.svg"}]`))
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL+"/", nil, time.Second).Items(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := []Item{
		{ID: 1, Title: "Lâmpadas", ImageURL: "http://x/lampadas.svg"},
		{ID: 2, Title: "Pilhas e Baterias", ImageURL: "http://x/baterias.svg"},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestCreatePoint(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/points" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 10}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, nil, time.Second).CreatePoint(context.Background(), Point{
		Name:      "Mercado",
		Email:     "contato@mercado.com",
		Whatsapp:  "11987654321",
		UF:        "SP",
		City:      "Santos",
		Latitude:  -23.96,
		Longitude: -46.33,
		Items:     []int{1, 2},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]any{
		"name":      "Mercado",
		"email":     "contato@mercado.com",
		"whatsapp":  "11987654321",
		"uf":        "SP",
		"city":      "Santos",
		"latitude":  -23.96,
		"longitude": -46.33,
		"items":     []any{1.0, 2.0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestCreatePointSendsEmptyItemsArray(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, nil, time.Second).CreatePoint(context.Background(), Point{}); err != nil {
		t.Fatal(err)
	}
	if string(raw["items"]) != "[]" {
		t.Errorf("items = %s, want []", raw["items"])
	}
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil, time.Second).Items(context.Background())

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusInternalServerError || se.Method != http.MethodGet {
		t.Errorf("unexpected error %+v", se)
	}
}
