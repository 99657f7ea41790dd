// Copyright 2025 Shadow Atlas Contributors

package merkletree

import "fmt"

// Continent is a fixed, enumerated continent key. GlobalOrder below defines
// the canonical ordering used to build the global root (spec §4.6 step 5).
type Continent string

const (
	ContinentAfrica       Continent = "AF"
	ContinentAntarctica   Continent = "AN"
	ContinentAsia         Continent = "AS"
	ContinentEurope       Continent = "EU"
	ContinentNorthAmerica Continent = "NA"
	ContinentOceania      Continent = "OC"
	ContinentSouthAmerica Continent = "SA"
)

// GlobalOrder is the fixed continent enumeration global-tree construction
// sorts by (spec §4.6 step 5). It is alphabetical by key and, once
// published, must never be reordered: doing so would change every global
// root for reasons unrelated to the underlying data.
var GlobalOrder = []Continent{
	ContinentAfrica,
	ContinentAntarctica,
	ContinentAsia,
	ContinentEurope,
	ContinentNorthAmerica,
	ContinentOceania,
	ContinentSouthAmerica,
}

// countryContinent maps ISO 3166-1 alpha-2 country codes to their
// continent. Coverage spans every inhabited continent; an unmapped code is
// a configuration gap that must be resolved before a country can be
// committed, not silently guessed at (spec §4.6: "continent determined by a
// fixed registry").
var countryContinent = map[string]Continent{
	// Africa
	"DZ": ContinentAfrica, "AO": ContinentAfrica, "BJ": ContinentAfrica, "BW": ContinentAfrica,
	"BF": ContinentAfrica, "BI": ContinentAfrica, "CM": ContinentAfrica, "CV": ContinentAfrica,
	"CF": ContinentAfrica, "TD": ContinentAfrica, "KM": ContinentAfrica, "CG": ContinentAfrica,
	"CD": ContinentAfrica, "CI": ContinentAfrica, "DJ": ContinentAfrica, "EG": ContinentAfrica,
	"GQ": ContinentAfrica, "ER": ContinentAfrica, "SZ": ContinentAfrica, "ET": ContinentAfrica,
	"GA": ContinentAfrica, "GM": ContinentAfrica, "GH": ContinentAfrica, "GN": ContinentAfrica,
	"GW": ContinentAfrica, "KE": ContinentAfrica, "LS": ContinentAfrica, "LR": ContinentAfrica,
	"LY": ContinentAfrica, "MG": ContinentAfrica, "MW": ContinentAfrica, "ML": ContinentAfrica,
	"MR": ContinentAfrica, "MU": ContinentAfrica, "MA": ContinentAfrica, "MZ": ContinentAfrica,
	"NA": ContinentAfrica, "NE": ContinentAfrica, "NG": ContinentAfrica, "RW": ContinentAfrica,
	"ST": ContinentAfrica, "SN": ContinentAfrica, "SC": ContinentAfrica, "SL": ContinentAfrica,
	"SO": ContinentAfrica, "ZA": ContinentAfrica, "SS": ContinentAfrica, "SD": ContinentAfrica,
	"TZ": ContinentAfrica, "TG": ContinentAfrica, "TN": ContinentAfrica, "UG": ContinentAfrica,
	"ZM": ContinentAfrica, "ZW": ContinentAfrica,

	// Antarctica (no permanent jurisdictions; reserved for completeness)
	"AQ": ContinentAntarctica,

	// Asia
	"AF": ContinentAsia, "AM": ContinentAsia, "AZ": ContinentAsia, "BH": ContinentAsia,
	"BD": ContinentAsia, "BT": ContinentAsia, "BN": ContinentAsia, "KH": ContinentAsia,
	"CN": ContinentAsia, "CY": ContinentAsia, "GE": ContinentAsia, "IN": ContinentAsia,
	"ID": ContinentAsia, "IR": ContinentAsia, "IQ": ContinentAsia, "IL": ContinentAsia,
	"JP": ContinentAsia, "JO": ContinentAsia, "KZ": ContinentAsia, "KW": ContinentAsia,
	"KG": ContinentAsia, "LA": ContinentAsia, "LB": ContinentAsia, "MY": ContinentAsia,
	"MV": ContinentAsia, "MN": ContinentAsia, "MM": ContinentAsia, "NP": ContinentAsia,
	"KP": ContinentAsia, "OM": ContinentAsia, "PK": ContinentAsia, "PH": ContinentAsia,
	"QA": ContinentAsia, "SA": ContinentAsia, "SG": ContinentAsia, "KR": ContinentAsia,
	"LK": ContinentAsia, "SY": ContinentAsia, "TW": ContinentAsia, "TJ": ContinentAsia,
	"TH": ContinentAsia, "TL": ContinentAsia, "TR": ContinentAsia, "TM": ContinentAsia,
	"AE": ContinentAsia, "UZ": ContinentAsia, "VN": ContinentAsia, "YE": ContinentAsia,

	// Europe
	"AL": ContinentEurope, "AD": ContinentEurope, "AT": ContinentEurope, "BY": ContinentEurope,
	"BE": ContinentEurope, "BA": ContinentEurope, "BG": ContinentEurope, "HR": ContinentEurope,
	"CZ": ContinentEurope, "DK": ContinentEurope, "EE": ContinentEurope, "FI": ContinentEurope,
	"FR": ContinentEurope, "DE": ContinentEurope, "GR": ContinentEurope, "HU": ContinentEurope,
	"IS": ContinentEurope, "IE": ContinentEurope, "IT": ContinentEurope, "XK": ContinentEurope,
	"LV": ContinentEurope, "LI": ContinentEurope, "LT": ContinentEurope, "LU": ContinentEurope,
	"MT": ContinentEurope, "MD": ContinentEurope, "MC": ContinentEurope, "ME": ContinentEurope,
	"NL": ContinentEurope, "MK": ContinentEurope, "NO": ContinentEurope, "PL": ContinentEurope,
	"PT": ContinentEurope, "RO": ContinentEurope, "RU": ContinentEurope, "SM": ContinentEurope,
	"RS": ContinentEurope, "SK": ContinentEurope, "SI": ContinentEurope, "ES": ContinentEurope,
	"SE": ContinentEurope, "CH": ContinentEurope, "UA": ContinentEurope, "GB": ContinentEurope,
	"VA": ContinentEurope,

	// North America
	"AG": ContinentNorthAmerica, "BS": ContinentNorthAmerica, "BB": ContinentNorthAmerica,
	"BZ": ContinentNorthAmerica, "CA": ContinentNorthAmerica, "CR": ContinentNorthAmerica,
	"CU": ContinentNorthAmerica, "DM": ContinentNorthAmerica, "DO": ContinentNorthAmerica,
	"SV": ContinentNorthAmerica, "GD": ContinentNorthAmerica, "GT": ContinentNorthAmerica,
	"HT": ContinentNorthAmerica, "HN": ContinentNorthAmerica, "JM": ContinentNorthAmerica,
	"MX": ContinentNorthAmerica, "NI": ContinentNorthAmerica, "PA": ContinentNorthAmerica,
	"KN": ContinentNorthAmerica, "LC": ContinentNorthAmerica, "VC": ContinentNorthAmerica,
	"TT": ContinentNorthAmerica, "US": ContinentNorthAmerica,

	// Oceania
	"AU": ContinentOceania, "FJ": ContinentOceania, "KI": ContinentOceania, "MH": ContinentOceania,
	"FM": ContinentOceania, "NR": ContinentOceania, "NZ": ContinentOceania, "PW": ContinentOceania,
	"PG": ContinentOceania, "WS": ContinentOceania, "SB": ContinentOceania, "TO": ContinentOceania,
	"TV": ContinentOceania, "VU": ContinentOceania,

	// South America
	"AR": ContinentSouthAmerica, "BO": ContinentSouthAmerica, "BR": ContinentSouthAmerica,
	"CL": ContinentSouthAmerica, "CO": ContinentSouthAmerica, "EC": ContinentSouthAmerica,
	"GY": ContinentSouthAmerica, "PY": ContinentSouthAmerica, "PE": ContinentSouthAmerica,
	"SR": ContinentSouthAmerica, "UY": ContinentSouthAmerica, "VE": ContinentSouthAmerica,
}

// ErrUnmappedCountry is returned when a country code has no continent
// registry entry.
type ErrUnmappedCountry struct {
	CountryCode string
}

func (e *ErrUnmappedCountry) Error() string {
	return fmt.Sprintf("merkletree: country code %q has no continent registry entry", e.CountryCode)
}

// ContinentOf looks up the continent for an ISO 3166-1 alpha-2 country
// code.
func ContinentOf(countryCode string) (Continent, error) {
	c, ok := countryContinent[countryCode]
	if !ok {
		return "", &ErrUnmappedCountry{CountryCode: countryCode}
	}
	return c, nil
}
