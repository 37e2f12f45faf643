package po

import (
	"golang.org/x/text/language"
)

// pluralRules maps a base language to its CLDR cardinal plural
// categories, in the canonical zero/one/two/few/many/other order.
// Languages not listed use the default one/other rule.
var pluralRules = map[string][]string{
	"ar":  {"zero", "one", "two", "few", "many", "other"},
	"be":  {"one", "few", "many", "other"},
	"bs":  {"one", "few", "other"},
	"br":  {"one", "two", "few", "many", "other"},
	"cs":  {"one", "few", "many", "other"},
	"cy":  {"zero", "one", "two", "few", "many", "other"},
	"ga":  {"one", "two", "few", "many", "other"},
	"gd":  {"one", "two", "few", "other"},
	"he":  {"one", "two", "many", "other"},
	"hr":  {"one", "few", "other"},
	"id":  {"other"},
	"ja":  {"other"},
	"km":  {"other"},
	"ko":  {"other"},
	"lo":  {"other"},
	"lt":  {"one", "few", "many", "other"},
	"lv":  {"zero", "one", "other"},
	"ms":  {"other"},
	"mt":  {"one", "two", "few", "many", "other"},
	"my":  {"other"},
	"pl":  {"one", "few", "many", "other"},
	"ro":  {"one", "few", "other"},
	"ru":  {"one", "few", "many", "other"},
	"sk":  {"one", "few", "many", "other"},
	"sl":  {"one", "two", "few", "other"},
	"sr":  {"one", "few", "other"},
	"th":  {"other"},
	"uk":  {"one", "few", "many", "other"},
	"vi":  {"other"},
	"yue": {"other"},
	"zh":  {"other"},
}

// PluralCategories returns the CLDR plural category names for a BCP-47
// language tag, so that indexed msgstr forms may be mapped to named
// plural keys. The catch-all "other" category is always last.
func PluralCategories(lang string) ([]string, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, err
	}
	base, _ := tag.Base()
	if categories, ok := pluralRules[base.String()]; ok {
		return categories, nil
	}
	return []string{"one", "other"}, nil
}
