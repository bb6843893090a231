package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/woozymasta/ecoleta/internal/form"
	"github.com/woozymasta/ecoleta/internal/geo"

	"github.com/AlecAivazis/survey/v2"
)

var errAborted = errors.New("registration aborted")

// prompter asks the operator for one answer at a time.
type prompter interface {
	Input(msg, def string, validate func(string) error) (string, error)
	Select(msg string, options []string) (string, error)
	MultiSelect(msg string, options []string) ([]string, error)
	Confirm(msg string) (bool, error)
}

// run walks the operator through the form and submits it.
func run(ctx context.Context, f *form.Form, p prompter, region string) error {
	if err := f.Load(ctx, nil); err != nil {
		return fmt.Errorf("load form: %w", err)
	}

	fields := []struct {
		name, msg string
		validate  func(string) error
	}{
		{form.FieldName, "Nome da entidade", required},
		{form.FieldEmail, "E-mail", required},
		{form.FieldWhatsapp, "Whatsapp", func(s string) error {
			if !form.ValidPhone(s, region) {
				return errors.New("invalid phone number")
			}
			return nil
		}},
	}
	for _, fld := range fields {
		val, err := p.Input(fld.msg, "", fld.validate)
		if err != nil {
			return err
		}
		if err := f.SetField(fld.name, val); err != nil {
			return err
		}
	}

	uf, err := p.Select("Estado (UF)", f.Snapshot().UFs)
	if err != nil {
		return err
	}
	if err := f.SelectUF(ctx, uf); err != nil {
		return fmt.Errorf("load cities of %s: %w", uf, err)
	}

	city, err := p.Select("Cidade", f.Snapshot().Cities)
	if err != nil {
		return err
	}
	if err := f.SelectCity(city); err != nil {
		return err
	}

	pos, err := askPosition(p, f.Snapshot().InitialPosition)
	if err != nil {
		return err
	}
	if err := f.SetPosition(pos); err != nil {
		return err
	}

	v := f.Snapshot()
	titles := make([]string, len(v.Items))
	byTitle := make(map[string]int, len(v.Items))
	for i, it := range v.Items {
		titles[i] = it.Title
		byTitle[it.Title] = it.ID
	}

	picked, err := p.MultiSelect("Itens de coleta", titles)
	if err != nil {
		return err
	}
	for _, title := range picked {
		if err := f.ToggleItem(byTitle[title]); err != nil {
			return err
		}
	}

	ok, err := p.Confirm(fmt.Sprintf("Cadastrar %q em %s/%s?", v.Data.Name, city, uf))
	if err != nil {
		return err
	}
	if !ok {
		return errAborted
	}

	return f.Submit(ctx)
}

func askPosition(p prompter, initial geo.Position) (geo.Position, error) {
	def := ""
	if !initial.IsZero() {
		def = initial.String()
	}

	raw, err := p.Input("Posição (latitude, longitude)", def, func(s string) error {
		_, err := parsePosition(s)
		return err
	})
	if err != nil {
		return geo.Position{}, err
	}

	return parsePosition(raw)
}

// parsePosition reads "lat, lng" or "lat lng".
func parsePosition(s string) (geo.Position, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) != 2 {
		return geo.Position{}, fmt.Errorf("expected latitude and longitude, got %q", s)
	}

	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return geo.Position{}, fmt.Errorf("latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return geo.Position{}, fmt.Errorf("longitude: %w", err)
	}

	return geo.Normalize(geo.Position{Latitude: lat, Longitude: lng})
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("value is required")
	}
	return nil
}

type surveyPrompter struct{}

func (surveyPrompter) Input(msg, def string, validate func(string) error) (string, error) {
	var out string
	prompt := &survey.Input{Message: msg, Default: def}

	var opts []survey.AskOpt
	if validate != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			s, _ := ans.(string)
			return validate(s)
		}))
	}
	if err := survey.AskOne(prompt, &out, opts...); err != nil {
		return "", err
	}
	return out, nil
}

func (surveyPrompter) Select(msg string, options []string) (string, error) {
	var out string
	prompt := &survey.Select{Message: msg, Options: options, PageSize: 15}
	if err := survey.AskOne(prompt, &out); err != nil {
		return "", err
	}
	return out, nil
}

func (surveyPrompter) MultiSelect(msg string, options []string) ([]string, error) {
	var out []string
	prompt := &survey.MultiSelect{Message: msg, Options: options}
	if err := survey.AskOne(prompt, &out, survey.WithValidator(survey.MinItems(1))); err != nil {
		return nil, err
	}
	return out, nil
}

func (surveyPrompter) Confirm(msg string) (bool, error) {
	var out bool
	if err := survey.AskOne(&survey.Confirm{Message: msg, Default: true}, &out); err != nil {
		return false, err
	}
	return out, nil
}
