package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Metadata describes one series as reported by the upstream itself, as
// opposed to the local catalog.
type Metadata struct {
	Code        int    `json:"code"`
	Name        string `json:"name,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Periodicity string `json:"periodicity,omitempty"`
	Source      string `json:"source,omitempty"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
}

// FetchMetadata fetches upstream metadata for a series. The SGS API has
// no dedicated JSON metadata endpoint, so the series is first validated
// with a one-point "ultimos" probe (which surfaces NotFound for unknown
// codes), then the series root endpoint is queried and parsed loosely.
// A malformed or missing metadata document degrades to a Metadata with
// only the code filled in, not an error.
func (c *Client) FetchMetadata(ctx context.Context, code int) (*Metadata, error) {
	if _, err := c.FetchLast(ctx, code, 1); err != nil {
		return nil, err
	}

	meta := &Metadata{Code: code}

	u := fmt.Sprintf("%s/bcdata.sgs.%d?formato=json", c.config.BaseURL, code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Int("series", code).Msg("Metadata endpoint unreachable")
		return meta, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug().Int("series", code).Int("status_code", resp.StatusCode).Msg("No metadata document")
		return meta, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return meta, nil
	}

	var raw struct {
		Nome               string          `json:"nome"`
		NomeCompleto       string          `json:"nomeCompleto"`
		UnidadePadrao      json.RawMessage `json:"unidadePadrao"`
		Periodicidade      json.RawMessage `json:"periodicidade"`
		GestorProprietario json.RawMessage `json:"gestorProprietario"`
		DataInicio         string          `json:"dataInicio"`
		DataFim            string          `json:"dataFim"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		c.logger.Debug().Err(err).Int("series", code).Msg("Unparseable metadata document")
		return meta, nil
	}

	meta.Name = raw.NomeCompleto
	if meta.Name == "" {
		meta.Name = raw.Nome
	}
	meta.Unit = looseName(raw.UnidadePadrao)
	meta.Periodicity = looseName(raw.Periodicidade)
	meta.Source = looseName(raw.GestorProprietario)
	meta.Start = raw.DataInicio
	meta.End = raw.DataFim
	return meta, nil
}

// looseName extracts a name from a field that the upstream serializes
// either as a plain string or as an object with a "nome" key.
func looseName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Nome string `json:"nome"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Nome
	}
	return ""
}
