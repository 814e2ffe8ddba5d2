// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"fmt"
	"net/http"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Credentials holds optional API credentials, keyed like the secrets files.
type Credentials map[string]string

const (
	secretSemanticScholarKey = "semantic-scholar-api-key"
	secretOpenAlexEmail      = "openalex-email"
	secretNCBIKey            = "ncbi-api-key"
	secretCOREKey            = "core-api-key"
)

// Build constructs the enabled sources of cfg in priority order.
func Build(cfg types.Config, client *http.Client, gate Gate, creds Credentials) ([]Source, error) {
	base := Base{Client: client, Gate: gate, UserAgent: cfg.HTTP.UserAgent}

	var sources []Source
	for _, sc := range cfg.EnabledSources() {
		switch sc.Name {
		case types.SourceArxiv:
			sources = append(sources, &Arxiv{Base: base})
		case types.SourceOpenAlex:
			sources = append(sources, &OpenAlex{Base: base, Email: creds[secretOpenAlexEmail]})
		case types.SourceSemanticScholar:
			sources = append(sources, &SemanticScholar{Base: base, APIKey: creds[secretSemanticScholarKey]})
		case types.SourceScholar:
			sources = append(sources, &Scholar{Base: base})
		case types.SourcePMC:
			sources = append(sources, &PMC{Base: base, APIKey: creds[secretNCBIKey]})
		case types.SourceDOAJ:
			sources = append(sources, &DOAJ{Base: base})
		case types.SourceCORE:
			sources = append(sources, &CORE{Base: base, APIKey: creds[secretCOREKey]})
		case types.SourceZenodo:
			sources = append(sources, &Zenodo{Base: base})
		case types.SourceHAL:
			sources = append(sources, &HAL{Base: base})
		case types.SourceBioRxiv:
			sources = append(sources, &BioRxiv{Base: base})
		case types.SourceMirror:
			if len(sc.Mirrors) == 0 {
				return nil, fmt.Errorf("source %q enabled without mirrors", sc.Name)
			}
			sources = append(sources, &Mirror{Base: base, Mirrors: sc.Mirrors})
		default:
			return nil, fmt.Errorf("unknown source %q", sc.Name)
		}
	}
	return sources, nil
}
