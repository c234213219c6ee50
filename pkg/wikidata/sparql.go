package wikidata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const entityPrefix = "http://www.wikidata.org/entity/"

// unitOne is the Wikidata "dimensionless" unit.
const unitOne = "Q199"

type sparqlValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sparqlResponse struct {
	Results struct {
		Bindings []map[string]sparqlValue `json:"bindings"`
	} `json:"results"`
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
)

func literal(s string) string {
	return `"` + literalEscaper.Replace(s) + `"`
}

func searchQuery(term, lang string, kind Kind, countryID string, limit int) string {
	var countryFilter string
	if countryID != "" {
		countryFilter = fmt.Sprintf("?item wdt:P17 wd:%s .", countryID)
	}
	return fmt.Sprintf(`SELECT ?item ?itemLabel ?countryLabel ?rank WHERE {
  SERVICE wikibase:mwapi {
    bd:serviceParam wikibase:endpoint "www.wikidata.org" ;
                    wikibase:api "EntitySearch" ;
                    mwapi:search %s ;
                    mwapi:language %s .
    ?item wikibase:apiOutputItem mwapi:item .
    ?rank wikibase:apiOrdinal true .
  }
  ?item wdt:P31/wdt:P279* wd:%s .
  %s
  OPTIONAL { ?item wdt:P17 ?country . }
  SERVICE wikibase:label { bd:serviceParam wikibase:language %s . }
}
ORDER BY ?rank
LIMIT %d`, literal(term), literal(lang), kind.classID(), countryFilter, literal(lang+",en"), limit)
}

// statementBranch selects the non-deprecated values of one property with
// their point-in-time qualifier.
func statementBranch(id, prop, name string) string {
	return fmt.Sprintf(`{
    wd:%[1]s p:%[2]s ?st . ?st ps:%[2]s ?value .
    ?st wikibase:rank ?rank . FILTER(?rank != wikibase:DeprecatedRank)
    OPTIONAL { ?st pq:P585 ?time . }
    BIND(%[3]q AS ?prop)
  }`, id, prop, name)
}

func factsQuery(id string) string {
	branches := []string{
		statementBranch(id, "P1082", "population"),
		fmt.Sprintf(`{
    wd:%[1]s p:P2046 ?st . ?st psv:P2046 ?node .
    ?st wikibase:rank ?rank . FILTER(?rank != wikibase:DeprecatedRank)
    ?node wikibase:quantityAmount ?value .
    OPTIONAL { ?node wikibase:quantityUnit ?unit . }
    BIND("area" AS ?prop)
  }`, id),
		statementBranch(id, "P1540", "male"),
		statementBranch(id, "P1539", "female"),
		fmt.Sprintf(`{ wd:%s wdt:P2044 ?value . BIND("elevation" AS ?prop) }`, id),
		fmt.Sprintf(`{ wd:%s wdt:P41 ?value . BIND("flag" AS ?prop) }`, id),
	}
	return "SELECT ?prop ?value ?unit ?time WHERE {\n  " +
		strings.Join(branches, " UNION ") + "\n}"
}

func entityID(uri string) string {
	return strings.TrimPrefix(uri, entityPrefix)
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func decodeFacts(resp *sparqlResponse) *Facts {
	f := &Facts{}
	for _, b := range resp.Results.Bindings {
		raw := b["value"].Value
		if b["prop"].Value == "flag" {
			if f.FlagURL == "" && raw != "" {
				f.FlagURL = strings.Replace(raw, "http://", "https://", 1)
			}
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		obs := Observation{Value: v, Time: parseTime(b["time"].Value)}
		if unit := entityID(b["unit"].Value); unit != unitOne {
			obs.Unit = unit
		}
		switch b["prop"].Value {
		case "population":
			f.Population = append(f.Population, obs)
		case "area":
			f.Area = append(f.Area, obs)
		case "male":
			f.Male = append(f.Male, obs)
		case "female":
			f.Female = append(f.Female, obs)
		case "elevation":
			if f.Elevation == nil {
				f.Elevation = &v
			}
		}
	}
	return f
}
