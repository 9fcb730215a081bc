package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagnosePage(t *testing.T) {
	doc := document(t, `<html><body>
		<div id="root"></div>
		<script>
			window.__REACT_DEVTOOLS_GLOBAL_HOOK__ = {};
			fetch('/api/products?page=1');
			fetch('/api/products?page=1');
			fetch('/api/session');
		</script>
	</body></html>`)

	diag := DiagnosePage(doc)

	assert.Contains(t, diag.Frameworks, "React")
	assert.Equal(t, []string{"/api/products?page=1", "/api/session"}, diag.APIEndpoints)
	assert.False(t, diag.LoginRedirect)
	assert.Equal(t, 1, diag.ElementCounts["div"])
}

func TestDiagnosePageLoginRedirect(t *testing.T) {
	doc := document(t, `<html><body><h1>Aanmelden</h1><form></form></body></html>`)

	diag := DiagnosePage(doc)

	assert.True(t, diag.LoginRedirect)
	assert.Empty(t, diag.Frameworks)
}
