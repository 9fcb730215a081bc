package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageDiagnosis summarizes why a listing page may have yielded no
// products: the markup is rendered client-side, the session got
// redirected to a login page, or the structure simply changed.
type PageDiagnosis struct {
	ElementCounts map[string]int
	Frameworks    []string
	APIEndpoints  []string
	LoginRedirect bool
}

var frameworkSignatures = map[string][]string{
	"React":   {"reactjs", "react.js", "__REACT_DEVTOOLS_GLOBAL_HOOK__"},
	"Vue":     {"vue.js", "vuejs"},
	"Angular": {"angular", "ngModel"},
	"Apollo":  {"APOLLO_STATE", "apollo"},
}

var apiEndpointPattern = regexp.MustCompile(`["'](/api/[^"']+)["']`)

// DiagnosePage inspects a page that produced zero records. Output is
// informational only; the crawl continues regardless.
func DiagnosePage(doc *goquery.Document) PageDiagnosis {
	diag := PageDiagnosis{
		ElementCounts: make(map[string]int),
	}

	for _, tag := range []string{"article", "div", "section", "li", "script"} {
		diag.ElementCounts[tag] = doc.Find(tag).Length()
	}

	var scripts strings.Builder
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		scripts.WriteString(s.Text())
		scripts.WriteString("\n")
	})
	scriptText := scripts.String()

	for framework, signatures := range frameworkSignatures {
		for _, sig := range signatures {
			if strings.Contains(scriptText, sig) {
				diag.Frameworks = append(diag.Frameworks, framework)
				break
			}
		}
	}

	seen := make(map[string]bool)
	for _, match := range apiEndpointPattern.FindAllStringSubmatch(scriptText, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			diag.APIEndpoints = append(diag.APIEndpoints, match[1])
		}
	}

	pageText := strings.ToLower(doc.Text())
	if strings.Contains(pageText, "login") || strings.Contains(pageText, "aanmelden") {
		diag.LoginRedirect = true
	}

	return diag
}
