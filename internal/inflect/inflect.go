// Package inflect provides the Rails-style inflection helpers the route
// evaluator and controller analyzer need: camelize, underscore, pluralize
// and singularize.
package inflect

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titler = cases.Title(language.English, cases.NoLower)

// irregular plural forms that no rule covers.
var irregulars = map[string]string{
	"person":   "people",
	"child":    "children",
	"man":      "men",
	"woman":    "women",
	"tooth":    "teeth",
	"foot":     "feet",
	"mouse":    "mice",
	"goose":    "geese",
	"ox":       "oxen",
	"datum":    "data",
	"medium":   "media",
	"analysis": "analyses",
	"crisis":   "crises",
	"thesis":   "theses",
}

var irregularsReverse = func() map[string]string {
	m := make(map[string]string, len(irregulars))
	for k, v := range irregulars {
		m[v] = k
	}
	return m
}()

// words with identical singular and plural forms.
var uncountable = map[string]bool{
	"equipment":   true,
	"information": true,
	"rice":        true,
	"money":       true,
	"species":     true,
	"series":      true,
	"fish":        true,
	"sheep":       true,
	"jeans":       true,
	"police":      true,
	"data":        true,
	"feedback":    true,
	"status":      true,
	"metadata":    true,
}

type rule struct {
	pattern *regexp.Regexp
	replace string
}

var pluralRules = compileRules([][2]string{
	{`(?i)(quiz)$`, `${1}zes`},
	{`(?i)^(ox)$`, `${1}en`},
	{`(?i)(m|l)ouse$`, `${1}ice`},
	{`(?i)(matr|vert|append)ix$`, `${1}ices`},
	{`(?i)(x|ch|ss|sh)$`, `${1}es`},
	{`(?i)([^aeiouy]|qu)y$`, `${1}ies`},
	{`(?i)(hive)$`, `${1}s`},
	{`(?i)([^f])fe$`, `${1}ves`},
	{`(?i)([lr])f$`, `${1}ves`},
	{`(?i)sis$`, `ses`},
	{`(?i)([ti])um$`, `${1}a`},
	{`(?i)(buffal|tomat|volcan)o$`, `${1}oes`},
	{`(?i)(alias|status)$`, `${1}es`},
	{`(?i)(octop|vir|radi|nucle|fung|cact|stimul)us$`, `${1}i`},
	{`(?i)(ax|test)is$`, `${1}es`},
	{`(?i)s$`, `s`},
	{`$`, `s`},
})

var singularRules = compileRules([][2]string{
	{`(?i)(database)s$`, `${1}`},
	{`(?i)(quiz)zes$`, `${1}`},
	{`(?i)(matr)ices$`, `${1}ix`},
	{`(?i)(vert|append)ices$`, `${1}ix`},
	{`(?i)^(ox)en$`, `${1}`},
	{`(?i)(alias|status)es$`, `${1}`},
	{`(?i)(octop|vir|radi|nucle|fung|cact|stimul)i$`, `${1}us`},
	{`(?i)(cris|ax|test)es$`, `${1}is`},
	{`(?i)(shoe)s$`, `${1}`},
	{`(?i)(o)es$`, `${1}`},
	{`(?i)(bus)es$`, `${1}`},
	{`(?i)(m|l)ice$`, `${1}ouse`},
	{`(?i)(x|ch|ss|sh)es$`, `${1}`},
	{`(?i)(m)ovies$`, `${1}ovie`},
	{`(?i)(s)eries$`, `${1}eries`},
	{`(?i)([^aeiouy]|qu)ies$`, `${1}y`},
	{`(?i)([lr])ves$`, `${1}f`},
	{`(?i)(tive)s$`, `${1}`},
	{`(?i)(hive)s$`, `${1}`},
	{`(?i)([^f])ves$`, `${1}fe`},
	{`(?i)(analy|ba|diagno|parenthe|progno|synop|the)ses$`, `${1}sis`},
	{`(?i)([ti])a$`, `${1}um`},
	{`(?i)(n)ews$`, `${1}ews`},
	{`(?i)s$`, ``},
})

func compileRules(specs [][2]string) []rule {
	rules := make([]rule, 0, len(specs))
	for _, s := range specs {
		rules = append(rules, rule{pattern: regexp.MustCompile(s[0]), replace: s[1]})
	}
	return rules
}

// Pluralize converts a singular word to its plural form.
func Pluralize(word string) string {
	if word == "" {
		return word
	}
	lower := strings.ToLower(word)
	if uncountable[lower] {
		return word
	}
	if plural, ok := irregulars[lower]; ok {
		return plural
	}
	for _, r := range pluralRules {
		if r.pattern.MatchString(word) {
			return r.pattern.ReplaceAllString(word, r.replace)
		}
	}
	return word + "s"
}

// Singularize converts a plural word to its singular form.
func Singularize(word string) string {
	if word == "" {
		return word
	}
	lower := strings.ToLower(word)
	if uncountable[lower] {
		return word
	}
	if singular, ok := irregularsReverse[lower]; ok {
		return singular
	}
	for _, r := range singularRules {
		if r.pattern.MatchString(word) {
			return r.pattern.ReplaceAllString(word, r.replace)
		}
	}
	return word
}

var (
	underscoreAcronyms = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	underscoreWords    = regexp.MustCompile(`([a-z\d])([A-Z])`)
)

// Underscore converts "Api::V1::UsersController" to "api/v1/users_controller".
func Underscore(camel string) string {
	s := strings.ReplaceAll(camel, "::", "/")
	s = underscoreAcronyms.ReplaceAllString(s, `${1}_${2}`)
	s = underscoreWords.ReplaceAllString(s, `${1}_${2}`)
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ToLower(s)
}

// Camelize converts "api/v1/users" to "Api::V1::Users".
func Camelize(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		words := strings.Split(part, "_")
		for j, w := range words {
			words[j] = titler.String(w)
		}
		parts[i] = strings.Join(words, "")
	}
	return strings.Join(parts, "::")
}
