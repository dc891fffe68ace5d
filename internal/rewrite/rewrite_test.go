package rewrite

import (
	"strings"
	"testing"

	"ci3to4/internal/mapping"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyController = `<?php
defined('BASEPATH') OR exit('No direct script access allowed');

class Welcome extends CI_Controller {

	function index()
	{
		$this->load->model('user_model');
		$data['users'] = $this->user_model->get_all();
		$this->load->view('home', $data);
	}
}
`

func TestStripGuard(t *testing.T) {
	t.Run("removes guard", func(t *testing.T) {
		out := StripGuard(legacyController)
		assert.NotContains(t, out, "BASEPATH")
		assert.True(t, strings.HasPrefix(out, "<?php\n\nclass Welcome"))
	})

	t.Run("variants", func(t *testing.T) {
		for _, src := range []string{
			"<?php\ndefined(\"BASEPATH\") or exit(\"No direct script access allowed\");\n",
			"<?php\ndefined('BASEPATH') || exit;\n",
			"<?php\nif ( ! defined('BASEPATH')) exit('No direct script access allowed');\n",
		} {
			assert.Equal(t, "<?php\n", StripGuard(src), src)
		}
	})

	t.Run("no guard is a no-op", func(t *testing.T) {
		src := "<?php\nclass A {}\n"
		assert.Equal(t, src, StripGuard(src))
	})

	t.Run("idempotent", func(t *testing.T) {
		for _, src := range []string{legacyController, "", "<?php\n", "defined('BASEPATH') OR exit('x');"} {
			once := StripGuard(src)
			assert.Equal(t, once, StripGuard(once))
		}
	})
}

func TestInjectNamespace(t *testing.T) {
	out, ok := InjectNamespace("<?php\n\nclass A {}\n", `App\Controllers`)
	require.True(t, ok)
	assert.Equal(t, "<?php\nnamespace App\\Controllers;\n\nclass A {}\n", out)

	again, ok := InjectNamespace(out, `App\Controllers`)
	assert.False(t, ok, "existing namespace must not be duplicated")
	assert.Equal(t, out, again)
}

func TestInjectUse(t *testing.T) {
	src := "<?php\nnamespace App\\Models;\n\nclass A {}\n"

	out, ok := InjectUse(src, `CodeIgniter\Model`)
	require.True(t, ok)
	assert.Equal(t, "<?php\nnamespace App\\Models;\n\nuse CodeIgniter\\Model;\n\nclass A {}\n", out)

	out, ok = InjectUse(out, `App\Models\UserModel`)
	require.True(t, ok)
	assert.Equal(t, "<?php\nnamespace App\\Models;\n\nuse CodeIgniter\\Model;\nuse App\\Models\\UserModel;\n\nclass A {}\n", out)

	_, ok = InjectUse(out, `CodeIgniter\Model`)
	assert.False(t, ok, "duplicate use statement")

	tight := "<?php\nnamespace App\\Models;\nclass A {}\n"
	out, ok = InjectUse(tight, `CodeIgniter\Model`)
	require.True(t, ok)
	assert.Equal(t, "<?php\nnamespace App\\Models;\n\nuse CodeIgniter\\Model;\n\nclass A {}\n", out)

	plain := "<?php\nclass A {}\n"
	out, ok = InjectUse(plain, `CodeIgniter\Model`)
	assert.False(t, ok, "needs a namespace line")
	assert.Equal(t, plain, out)
}

func TestSubstituteMethods(t *testing.T) {
	src := `$a = $this->input->post('a'); $b = $this->input->get_post('b'); $c = $this->input->get('c');`
	out, ok := SubstituteMethods(src, mapping.Methods)
	require.True(t, ok)
	assert.Equal(t, `$a = $this->request->getPost('a'); $b = $this->request->getGetPost('b'); $c = $this->request->getGet('c');`, out)

	t.Run("substring collision is rewritten too", func(t *testing.T) {
		out, _ := SubstituteMethods(`$this->input->postal_code`, mapping.Methods)
		assert.Equal(t, `$this->request->getPostal_code`, out)
	})

	t.Run("other receivers untouched", func(t *testing.T) {
		_, ok := SubstituteMethods(`$ci->input->post('a')`, mapping.Methods)
		assert.False(t, ok)
	})
}

func TestGenericRules(t *testing.T) {
	chain := NewChain(GenericRules()...)
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"view", `$this->load->view('home', $data);`, `return view('home', $data);`},
		{"view nested args", `$this->load->view('home', array('a' => f($x)));`, `return view('home', array('a' => f($x)));`},
		{"view as string", `$html = $this->load->view('mail', $d, TRUE);`, `$html = view('mail', $d);`},
		{"view before true argument", `$this->load->view('a', $data); $x = strpos($y, TRUE);`, `return view('a', $data); $x = strpos($y, TRUE);`},
		{"model", `$this->load->model('other');`, `model('other');`},
		{"library", `$this->load->library('email');`, `service('email');`},
		{"helper", `$this->load->helper('url');`, `helper('url');`},
		{"database", `$this->load->database();`, `$this->db = \Config\Database::connect();`},
		{"result", `$q->result()`, `$q->getResult()`},
		{"result array", `$q->result_array()`, `$q->getResultArray()`},
		{"row with arg", `$q->row(2)`, `$q->getRow(2)`},
		{"row array", `$q->row_array()`, `$q->getRowArray()`},
		{"num rows", `$q->num_rows()`, `$q->getNumRows()`},
		{"session get", `$id = $this->session->userdata('id');`, `$id = session()->get('id');`},
		{"session nested", `$this->session->userdata(strtolower($k))`, `session()->get(strtolower($k))`},
		{"session set", `$this->session->set_userdata($row);`, `session()->set($row);`},
		{"session unset", `$this->session->unset_userdata('id');`, `session()->remove('id');`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, diags := chain.Apply(tc.in)
			assert.Equal(t, tc.want, out)
			assert.Empty(t, diags)
		})
	}
}

func TestRenameClasses(t *testing.T) {
	out, ok := RenameClasses(`/** @var CI_Input $in */ $x = new CI_Email(); CI_Emailer::x();`, mapping.Classes)
	require.True(t, ok)
	assert.Equal(t, `/** @var \CodeIgniter\HTTP\IncomingRequest $in */ $x = new \CodeIgniter\Email\Email(); CI_Emailer::x();`, out)
}

func TestNormalizeVisibility(t *testing.T) {
	src := "class A {\n\tfunction a() {}\n\tstatic function b() {}\n\tprivate function c() {}\n\tprotected static function d() {}\n\tfunction &e() {}\n\t$f = function() {};\n}\n"
	out, ok := NormalizeVisibility(src)
	require.True(t, ok)
	assert.Equal(t, "class A {\n\tpublic function a() {}\n\tpublic static function b() {}\n\tprivate function c() {}\n\tprotected static function d() {}\n\tpublic function &e() {}\n\t$f = function() {};\n}\n", out)

	again, ok := NormalizeVisibility(out)
	assert.False(t, ok)
	assert.Equal(t, out, again)
}

func TestCollapseVisibility(t *testing.T) {
	out, ok := CollapseVisibility("public public function a() {}\nprivate public function b() {}")
	require.True(t, ok)
	assert.Equal(t, "public function a() {}\nprivate function b() {}", out)
}

func TestDeriveModelName(t *testing.T) {
	cases := map[string]string{
		"user_model":          "UserModel",
		"User_model":          "UserModel",
		"User_Model":          "UserModel",
		"Auth":                "AuthModel",
		"my_cool_thing_model": "MyCoolThingModel",
		"user_profile_model":  "UserProfileModel",
		"blog__post":          "BlogPostModel",
	}
	for in, want := range cases {
		assert.Equal(t, want, DeriveModelName(in), in)
		assert.Equal(t, DeriveModelName(in), DeriveModelName(in), "deterministic")
		assert.True(t, strings.HasSuffix(DeriveModelName(DeriveModelName(in)), "Model"))
	}
}

func TestRewriteModelReferences(t *testing.T) {
	names := mapping.ModelNames{"User_model": "UserModel"}
	src := StripGuard(legacyController) + "\n$this->load->model('blog_model');\n$this->blog_model->all();\n"

	out, ok := RewriteModelReferences(src, names)
	require.True(t, ok)
	assert.NotContains(t, out, "load->model('user_model')")
	assert.Contains(t, out, "$data['users'] = UserModel::get_all();")
	assert.Contains(t, out, "$this->load->model('blog_model');", "unmapped models are untouched")
	assert.Contains(t, out, "$this->blog_model->all();")
	assert.Contains(t, out, "\t{\n\t\t$data['users']", "the load statement line is removed entirely")

	assert.Equal(t, []string{"User_model"}, ReferencedModels(src, names))
}

func TestRewriteModelDeclaration(t *testing.T) {
	out, ok := RewriteModelDeclaration("class User_model extends CI_Model {", "User_model", "UserModel")
	require.True(t, ok)
	assert.Equal(t, "class UserModel extends Model {", out)

	src := "class User_model extends MY_Model {"
	out, ok = RewriteModelDeclaration(src, "User_model", "UserModel")
	assert.False(t, ok)
	assert.Equal(t, src, out)
}

func TestInjectModelProperties(t *testing.T) {
	src := "<?php\nclass UserModel extends Model\n{\n    public function a() {}\n}\n"
	out, ok := InjectModelProperties(src)
	require.True(t, ok)
	assert.Contains(t, out, "{\n    protected $table = '';\n    protected $primaryKey = 'id';")
	assert.Contains(t, out, "protected $useTimestamps = false;\n\n    public function a()")

	_, ok = InjectModelProperties(out)
	assert.False(t, ok)
}

func TestChainDiagnostics(t *testing.T) {
	chain := NewChain(
		StripGuardRule(),
		ModelDeclarationRule("Blog_model", "BlogModel"),
		VisibilityRule(),
	)
	out, diags := chain.Apply("<?php\nclass Blog_model extends MY_Model {\n\tfunction a() {}\n}\n")
	assert.Contains(t, out, "public function a()", "later rules still run")
	require.Len(t, diags, 1)
	assert.Equal(t, "model-declaration", diags[0].Rule)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
	assert.Equal(t, []string{"strip-guard", "model-declaration", "method-visibility"}, chain.Names())
}

func TestViewRules(t *testing.T) {
	chain := NewChain(ViewRules()...)
	cases := []struct{ in, want string }{
		{`<?php echo $title; ?>`, `<?= $title ?>`},
		{`<?php echo form_open('login'); ?>`, `<?= form_open('login') ?>`},
		{`<?php echo form_close(); ?>`, `<?= form_close() ?>`},
		{`<?php echo form_input('name', set_value('name')); ?>`, `<?= form_input('name', set_value('name')) ?>`},
		{`<?php echo form_error('email'); ?>`, `<?= validation_show_error('email') ?>`},
		{`<a href="<?php echo site_url('a/b'); ?>">`, `<a href="<?= site_url('a/b') ?>">`},
		{`<?php echo base_url() ?>`, `<?= base_url() ?>`},
		{`<?php echo current_url(); ?>`, `<?= current_url() ?>`},
		{`<?php $this->load->view('header'); ?>`, `<?= view('header') ?>`},
		{`<?php if ($a): ?>`, `<?php if ($a): ?>`},
	}
	for _, tc := range cases {
		out, _ := chain.Apply(tc.in)
		assert.Equal(t, tc.want, out, tc.in)
	}
}

func TestExtractConfig(t *testing.T) {
	src := `<?php
$config['base_url'] = 'http://x';
$config['index_page'] = "index.php"; // trailing comment
$config['composer_autoload'] = FALSE;
$config['proxy_ips'] = array(
	'10.0.0.1',
);
$config['nested']['key'] = 1;
$config['base_url'] = 'http://y';
$autoload['packages'] = array();
`
	entries := ExtractConfig(src)
	assert.Equal(t, []ConfigEntry{
		{Key: "base_url", Value: "'http://y'"},
		{Key: "index_page", Value: `"index.php"`},
		{Key: "composer_autoload", Value: "FALSE"},
	}, entries)

	withAutoload := ExtractConfig(src, "autoload")
	assert.Len(t, withAutoload, 4)
	assert.Equal(t, ConfigEntry{Key: "packages", Value: "array()"}, withAutoload[3])

	class := RenderConfigClass("Config", "LegacyApp", ExtractConfig("$config['base_url'] = 'http://x';"))
	assert.Contains(t, class, "namespace Config;")
	assert.Contains(t, class, "use CodeIgniter\\Config\\BaseConfig;")
	assert.Contains(t, class, "class LegacyApp extends BaseConfig\n{")
	assert.Contains(t, class, "    public $base_url = 'http://x';\n")
}

func TestExtractDatabaseCredentials(t *testing.T) {
	src := `$db['default'] = array(
	'dsn'	=> '',
	'hostname' => 'localhost',
	'username' => "root",
	'password' => '',
	'database' => 'shop',
);`
	assert.Equal(t, map[string]string{
		"hostname": "localhost",
		"username": "root",
		"password": "",
		"database": "shop",
	}, ExtractDatabaseCredentials(src))

	flat := `$db['default']['hostname'] = 'db.local';`
	assert.Equal(t, map[string]string{"hostname": "db.local"}, ExtractDatabaseCredentials(flat))
}

func TestExtractAutoloadHelpers(t *testing.T) {
	assert.Equal(t, []string{"url", "form"}, ExtractAutoloadHelpers(`$autoload['helper'] = array('url', "form");`))
	assert.Equal(t, []string{"url"}, ExtractAutoloadHelpers(`$autoload['helper'] = ['url'];`))
	assert.Nil(t, ExtractAutoloadHelpers(`$autoload['helper'] = array();`))
	assert.Nil(t, ExtractAutoloadHelpers(`$autoload['libraries'] = array('session');`))
}

func TestRewriteRoutes(t *testing.T) {
	src := "<?php\n$route['default_controller'] = 'home';\n$route[\"blog/(:num)\"] = \"blog/view/$1\";\n$route['translate_uri_dashes'] = FALSE;\n"
	chain := NewChain(RoutesRule(), TranslateDashesRule(), RoutesHeaderRule())
	out, diags := chain.Apply(src)
	assert.Empty(t, diags)
	assert.Contains(t, out, "$routes->add('default_controller', 'home');")
	assert.Contains(t, out, "$routes->add(\"blog/(:num)\", \"blog/view/$1\");")
	assert.Contains(t, out, "$routes->setTranslateURIDashes(FALSE);")
	assert.True(t, strings.HasPrefix(out, "<?php\n"+RoutesHeader))
}
