package mapping

import (
	"slices"
	"sort"
)

// MethodMapping renames a call path reached through `$this->`.
type MethodMapping struct {
	Old string
	New string
}

// ClassMapping renames a CI3 class reference to its CI4 counterpart.
type ClassMapping struct {
	Old string
	New string
}

// Methods is applied in order. Entries sharing a prefix list the longer path first.
var Methods = []MethodMapping{
	{Old: "input->get_post", New: "request->getGetPost"},
	{Old: "input->post_get", New: "request->getPostGet"},
	{Old: "input->post", New: "request->getPost"},
	{Old: "input->get", New: "request->getGet"},
	{Old: "input->server", New: "request->getServer"},
	{Old: "input->cookie", New: "request->getCookie"},
	{Old: "input->ip_address", New: "request->getIPAddress"},
	{Old: "input->user_agent", New: "request->getUserAgent"},
	{Old: "input->method", New: "request->getMethod"},
	{Old: "input->is_ajax_request", New: "request->isAJAX"},
	{Old: "input->is_cli_request", New: "request->isCLI"},
	{Old: "uri->segment", New: "request->getUri()->getSegment"},
	{Old: "session->set_flashdata", New: "session->setFlashdata"},
	{Old: "session->flashdata", New: "session->getFlashdata"},
	{Old: "session->sess_destroy", New: "session->destroy"},
	{Old: "db->insert_id", New: "db->insertID"},
	{Old: "db->affected_rows", New: "db->affectedRows"},
	{Old: "db->last_query", New: "db->getLastQuery"},
	{Old: "form_validation->set_rules", New: "validation->setRule"},
	{Old: "form_validation->run", New: "validation->run"},
	{Old: "output->set_content_type", New: "response->setContentType"},
	{Old: "output->set_status_header", New: "response->setStatusCode"},
	{Old: "output->set_output", New: "response->setBody"},
}

// Classes is applied on word boundaries after the base-class rewrites.
var Classes = []ClassMapping{
	{Old: "CI_Controller", New: "BaseController"},
	{Old: "CI_Model", New: "Model"},
	{Old: "CI_Input", New: `\CodeIgniter\HTTP\IncomingRequest`},
	{Old: "CI_Output", New: `\CodeIgniter\HTTP\Response`},
	{Old: "CI_Session", New: `\CodeIgniter\Session\Session`},
	{Old: "CI_Email", New: `\CodeIgniter\Email\Email`},
	{Old: "CI_Form_validation", New: `\CodeIgniter\Validation\Validation`},
	{Old: "CI_DB_result", New: `\CodeIgniter\Database\ResultInterface`},
	{Old: "CI_DB_query_builder", New: `\CodeIgniter\Database\BaseBuilder`},
	{Old: "CI_Upload", New: `\CodeIgniter\HTTP\Files\UploadedFile`},
	{Old: "CI_Pagination", New: `\CodeIgniter\Pager\Pager`},
}

// ClassesExcept returns Classes without the entries for the given legacy names.
func ClassesExcept(old ...string) []ClassMapping {
	out := make([]ClassMapping, 0, len(Classes))
	for _, m := range Classes {
		if !slices.Contains(old, m.Old) {
			out = append(out, m)
		}
	}
	return out
}

// ConfigSource pairs one of the fixed legacy config files with its target class.
type ConfigSource struct {
	File string // file name under application/config
	// Var is the file's native array variable besides $config ("" when none).
	Var   string
	Class string // generated class name under the Config namespace
}

// ConfigSources lists the class-generating config files; routes.php is handled
// by the routes migrator.
var ConfigSources = []ConfigSource{
	{File: "config.php", Class: "LegacyApp"},
	{File: "database.php", Var: "db", Class: "LegacyDatabase"},
	{File: "autoload.php", Var: "autoload", Class: "LegacyAutoload"},
}

// RoutesFile is the fourth fixed legacy config file.
const RoutesFile = "routes.php"

// ModelNames maps legacy model class names to derived CI4 model names.
type ModelNames map[string]string

// Keys returns the legacy names, longest first, so that a name containing
// another is rewritten before it.
func (m ModelNames) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
