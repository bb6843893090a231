package main

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/woozymasta/ecoleta/internal/api"
	"github.com/woozymasta/ecoleta/internal/form"
	"github.com/woozymasta/ecoleta/internal/geo"
)

type catalog struct{ posted []api.Point }

func (c *catalog) Items(context.Context) ([]api.Item, error) {
	return []api.Item{{ID: 1, Title: "Pilhas e Baterias"}, {ID: 3, Title: "Papéis e Papelão"}}, nil
}

func (c *catalog) CreatePoint(_ context.Context, p api.Point) error {
	c.posted = append(c.posted, p)
	return nil
}

type localities struct{}

func (localities) States(context.Context) ([]string, error) { return []string{"MG", "SP"}, nil }

func (localities) Cities(context.Context, string) ([]string, error) {
	return []string{"Belo Horizonte", "Contagem"}, nil
}

type scripted struct {
	inputs  []string
	selects []string
	multi   []string
	confirm bool
}

func (s *scripted) Input(_, _ string, validate func(string) error) (string, error) {
	v := s.inputs[0]
	s.inputs = s.inputs[1:]
	if validate != nil {
		if err := validate(v); err != nil {
			return "", err
		}
	}
	return v, nil
}

func (s *scripted) Select(_ string, options []string) (string, error) {
	v := s.selects[0]
	s.selects = s.selects[1:]
	for _, o := range options {
		if o == v {
			return v, nil
		}
	}
	return "", errors.New("option not offered: " + v)
}

func (s *scripted) MultiSelect(string, []string) ([]string, error) { return s.multi, nil }

func (s *scripted) Confirm(string) (bool, error) { return s.confirm, nil }

func TestRunSubmits(t *testing.T) {
	cat := &catalog{}
	f := form.New("cli", cat, localities{}, nil)

	p := &scripted{
		inputs:  []string{"Coleta BH", "bh@coleta.org", "31987654321", "-19.92, -43.94"},
		selects: []string{"MG", "Contagem"},
		multi:   []string{"Papéis e Papelão"},
		confirm: true,
	}

	if err := run(context.Background(), f, p, "BR"); err != nil {
		t.Fatal(err)
	}

	want := []api.Point{{
		Name:      "Coleta BH",
		Email:     "bh@coleta.org",
		Whatsapp:  "31987654321",
		UF:        "MG",
		City:      "Contagem",
		Items:     []int{3},
		Latitude:  -19.92,
		Longitude: -43.94,
	}}
	if diff := cmp.Diff(want, cat.posted); diff != "" {
		t.Errorf("posted mismatch (-want +got):\n%s", diff)
	}
}

func TestRunAborted(t *testing.T) {
	cat := &catalog{}
	f := form.New("cli", cat, localities{}, nil)

	p := &scripted{
		inputs:  []string{"Coleta BH", "bh@coleta.org", "31987654321", "-19.92 -43.94"},
		selects: []string{"MG", "Belo Horizonte"},
		multi:   []string{"Pilhas e Baterias"},
	}

	if err := run(context.Background(), f, p, "BR"); !errors.Is(err, errAborted) {
		t.Fatalf("err = %v", err)
	}
	if len(cat.posted) != 0 {
		t.Error("aborted registration was posted")
	}
}

func TestParsePosition(t *testing.T) {
	cases := []struct {
		in   string
		want geo.Position
		err  bool
	}{
		{in: "-23.5, -46.6", want: geo.Position{Latitude: -23.5, Longitude: -46.6}},
		{in: "-23.5 -46.6", want: geo.Position{Latitude: -23.5, Longitude: -46.6}},
		{in: "10, 190", want: geo.Position{Latitude: 10, Longitude: -170}},
		{in: "10", err: true},
		{in: "a, b", err: true},
	}

	for _, c := range cases {
		got, err := parsePosition(c.in)
		if (err != nil) != c.err {
			t.Errorf("%q: err = %v", c.in, err)
			continue
		}
		if !c.err && got != c.want {
			t.Errorf("%q: got %v, want %v", c.in, got, c.want)
		}
	}
}
