package rewrite

// echoFuncs are the helper calls whose long-form echo tags become short echo
// tags unchanged.
var echoFuncs = []string{"form_open", "form_close", "form_input", "site_url", "base_url", "current_url"}

// ViewRules converts CI3 template idioms. The generic echo rule runs last so the
// specific rules see the original tags.
func ViewRules() []Rule {
	rules := []Rule{
		Regex("view-form-error", `<\?php\s+echo\s+form_error\((.*?)\)\s*;?\s*\?>`, `<?= validation_show_error($1) ?>`),
	}
	for _, fn := range echoFuncs {
		rules = append(rules, Regex("view-"+fn, `<\?php\s+echo\s+`+fn+`\((.*?)\)\s*;?\s*\?>`, `<?= `+fn+`($1) ?>`))
	}
	rules = append(rules,
		Regex("view-partial", `<\?php\s+\$this->load->view\((.*?)\)\s*;?\s*\?>`, `<?= view($1) ?>`),
		Regex("view-echo", `<\?php\s+echo\s+(.*?)\s*;?\s*\?>`, `<?= $1 ?>`),
	)
	return rules
}
