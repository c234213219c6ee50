// Package wikidata queries the Wikidata SPARQL endpoint for place entities
// and their demographic facts.
package wikidata

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoassist/internal/fetcher"
)

const (
	defaultEndpoint = "https://query.wikidata.org/sparql"
	defaultTimeout  = 10 * time.Second
	defaultLimit    = 10
)

// Kind restricts an entity search to a class of items.
type Kind int

const (
	// KindPlace matches populated places (Q486972) and their subclasses.
	KindPlace Kind = iota
	// KindCountry matches countries (Q6256) and their subclasses.
	KindCountry
)

func (k Kind) String() string {
	if k == KindCountry {
		return "country"
	}
	return "place"
}

func (k Kind) classID() string {
	if k == KindCountry {
		return "Q6256"
	}
	return "Q486972"
}

// SearchQuery is one entity search. CountryID, when set, keeps only items
// whose country (P17) is that entity.
type SearchQuery struct {
	Term      string
	Language  string
	Kind      Kind
	CountryID string
}

// Entity is a search hit ordered by the provider's relevance rank.
type Entity struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	CountryLabel string `json:"countryLabel,omitempty"`
	Rank         int    `json:"rank"`
}

// Observation is one statement value with its optional unit and point in time.
type Observation struct {
	Value float64    `json:"value"`
	Unit  string     `json:"unit,omitempty"`
	Time  *time.Time `json:"time,omitempty"`
}

// Facts are the raw statements of an entity. Selection and unit
// normalisation happen in the caller.
type Facts struct {
	Population []Observation `json:"population"`
	Area       []Observation `json:"area"`
	Male       []Observation `json:"male"`
	Female     []Observation `json:"female"`
	Elevation  *float64      `json:"elevation"`
	FlagURL    string        `json:"flagUrl"`
}

// Client reads entities and facts from Wikidata.
type Client interface {
	SearchEntities(ctx context.Context, q SearchQuery) ([]Entity, error)
	GetFacts(ctx context.Context, id string) (*Facts, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithEndpoint overrides the SPARQL endpoint.
func WithEndpoint(u string) Option {
	return func(c *httpClient) {
		c.endpoint = u
	}
}

// WithTimeout bounds each query.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLimit caps the number of search hits.
func WithLimit(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.limit = n
		}
	}
}

type httpClient struct {
	fetch    fetcher.Fetcher
	endpoint string
	timeout  time.Duration
	limit    int
}

// NewClient creates a Wikidata client over f.
func NewClient(f fetcher.Fetcher, opts ...Option) Client {
	c := &httpClient{
		fetch:    f,
		endpoint: defaultEndpoint,
		timeout:  defaultTimeout,
		limit:    defaultLimit,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var entityIDPattern = regexp.MustCompile(`^Q[1-9][0-9]*$`)

// ValidEntityID reports whether id looks like a Wikidata item ID.
func ValidEntityID(id string) bool {
	return entityIDPattern.MatchString(id)
}

func (c *httpClient) query(ctx context.Context, sparql string) (*sparqlResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.endpoint + "?" + url.Values{"format": {"json"}, "query": {sparql}}.Encode()
	var resp sparqlResponse
	if err := c.fetch.GetJSON(ctx, u, &resp); err != nil {
		return nil, eris.Wrap(err, "wikidata: sparql query")
	}
	return &resp, nil
}

// SearchEntities implements Client.
func (c *httpClient) SearchEntities(ctx context.Context, q SearchQuery) ([]Entity, error) {
	if q.Term == "" {
		return nil, nil
	}
	if q.CountryID != "" && !ValidEntityID(q.CountryID) {
		return nil, eris.Errorf("wikidata: invalid country id %q", q.CountryID)
	}
	lang := q.Language
	if lang == "" {
		lang = "en"
	}

	resp, err := c.query(ctx, searchQuery(q.Term, lang, q.Kind, q.CountryID, c.limit))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int)
	var out []Entity
	for _, b := range resp.Results.Bindings {
		id := entityID(b["item"].Value)
		if !ValidEntityID(id) {
			continue
		}
		rank, _ := strconv.Atoi(b["rank"].Value)
		if i, ok := seen[id]; ok {
			// An item with several countries appears once per country.
			if out[i].CountryLabel == "" {
				out[i].CountryLabel = b["countryLabel"].Value
			}
			continue
		}
		seen[id] = len(out)
		out = append(out, Entity{
			ID:           id,
			Label:        b["itemLabel"].Value,
			CountryLabel: b["countryLabel"].Value,
			Rank:         rank,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

// GetFacts implements Client.
func (c *httpClient) GetFacts(ctx context.Context, id string) (*Facts, error) {
	if !ValidEntityID(id) {
		return nil, eris.Errorf("wikidata: invalid entity id %q", id)
	}
	resp, err := c.query(ctx, factsQuery(id))
	if err != nil {
		return nil, err
	}
	return decodeFacts(resp), nil
}
