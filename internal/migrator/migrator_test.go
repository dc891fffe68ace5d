package migrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ci3to4/internal/mapping"
	"ci3to4/internal/rewrite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guard = "defined('BASEPATH') OR exit('No direct script access allowed');\n"

var legacyFiles = map[string]string{
	"controllers/Welcome.php": "<?php\n" + guard + `
class Welcome extends CI_Controller {

	function index()
	{
		$this->load->model('user_model');
		$data['users'] = $this->user_model->get_all();
		$data['name'] = $this->input->post('name');
		$this->load->view('home', $data);
	}
}
`,
	"controllers/admin/Dashboard.php": "<?php\n" + guard + `
class Dashboard extends CI_Controller {
	public function index()
	{
		$this->load->model('stats');
		echo $this->stats->count();
	}
}
`,
	"models/User_model.php": "<?php\n" + guard + `
class User_model extends CI_Model {

	function get_all()
	{
		return $this->db->get('users')->result();
	}
}
`,
	"models/Legacy_model.php": "<?php\n" + guard + `
class Legacy_model extends MY_Model {
	public function find() {}
}
`,
	"views/home.php":          "<h1><?php echo $title; ?></h1>\n<?php echo form_error('email'); ?>\n",
	"views/partials/menu.php": "<a href=\"<?php echo site_url('home'); ?>\">Home</a>\n",
	"config/config.php": "<?php\n" + guard + `
$config['base_url'] = 'http://x';
$config['proxy_ips'] = array(
	'10.0.0.1',
);
`,
	"config/database.php": "<?php\n" + guard + `
$active_group = 'default';
$db['default'] = array(
	'hostname' => 'localhost',
);
`,
	"config/routes.php": "<?php\n" + guard + `
$route['default_controller'] = 'welcome';
$route['404_override'] = '';
`,
	"helpers/money_helper.php":   "<?php\n" + guard + "\nfunction money($v) { return $v; }\n",
	"libraries/Slugger.php":      "<?php\n" + guard + "\nclass Slugger {}\n",
	"libraries/index.html":       "<html></html>\n",
	"controllers/README.md":      "ignored\n",
}

func setup(t *testing.T) (*Migrator, string, string) {
	t.Helper()
	legacy := filepath.Join(t.TempDir(), "shop")
	for rel, content := range legacyFiles {
		path := filepath.Join(legacy, "application", rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	target := filepath.Join(t.TempDir(), "shop_ci4")
	return New(legacy, target, DefaultNamespaces()), legacy, target
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func errorDiagnostics(diags []rewrite.Diagnostic) []rewrite.Diagnostic {
	var out []rewrite.Diagnostic
	for _, d := range diags {
		if d.Severity == rewrite.SeverityError {
			out = append(out, d)
		}
	}
	return out
}

func TestMigrator_ModelsThenControllers(t *testing.T) {
	m, _, target := setup(t)
	ctx := context.Background()

	names, modelRes, err := m.Models(ctx)
	require.NoError(t, err)
	assert.Equal(t, mapping.ModelNames{"User_model": "UserModel", "Legacy_model": "LegacyModel"}, names)
	assert.Len(t, modelRes.Artifacts, 2)
	assert.Empty(t, errorDiagnostics(modelRes.Diagnostics))

	t.Run("model output", func(t *testing.T) {
		out := read(t, filepath.Join(target, "app", "Models", "UserModel.php"))
		assert.Contains(t, out, "<?php\nnamespace App\\Models;\n\nuse CodeIgniter\\Model;\n")
		assert.Contains(t, out, "class UserModel extends Model {\n    protected $table = '';")
		assert.Contains(t, out, "public function get_all()")
		assert.Contains(t, out, "->getResult()")
		assert.NotContains(t, out, "BASEPATH")
	})

	t.Run("undeclared base keeps declaration", func(t *testing.T) {
		out := read(t, filepath.Join(target, "app", "Models", "LegacyModel.php"))
		assert.Contains(t, out, "class Legacy_model extends MY_Model")
		var found bool
		for _, d := range modelRes.Diagnostics {
			if d.Rule == "model-declaration" {
				found = true
				assert.Equal(t, "models/Legacy_model.php", d.File)
				assert.Contains(t, d.Message, "found `class Legacy_model extends MY_Model`")
			}
		}
		assert.True(t, found)
	})

	ctrlRes, err := m.Controllers(ctx, names)
	require.NoError(t, err)
	assert.Len(t, ctrlRes.Artifacts, 2)
	assert.Empty(t, errorDiagnostics(ctrlRes.Diagnostics))

	t.Run("controller output", func(t *testing.T) {
		out := read(t, filepath.Join(target, "app", "Controllers", "Welcome.php"))
		assert.Contains(t, out, "namespace App\\Controllers;")
		assert.Contains(t, out, "use App\\Controllers\\BaseController;\nuse App\\Models\\UserModel;")
		assert.Contains(t, out, "class Welcome extends BaseController {")
		assert.Contains(t, out, "public function index()")
		assert.NotContains(t, out, "load->model")
		assert.Contains(t, out, "$data['users'] = UserModel::get_all();")
		assert.Contains(t, out, "$this->request->getPost('name')")
		assert.Contains(t, out, "return view('home', $data);")
	})

	t.Run("unmapped model untouched", func(t *testing.T) {
		out := read(t, filepath.Join(target, "app", "Controllers", "admin", "Dashboard.php"))
		assert.Contains(t, out, "model('stats');")
		assert.Contains(t, out, "$this->stats->count()")
		assert.NotContains(t, out, "use App\\Models\\")
	})
}

func TestMigrator_ModelsMismatchedDeclaration(t *testing.T) {
	legacy := filepath.Join(t.TempDir(), "shop")
	path := filepath.Join(legacy, "application", "models", "Users.php")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("<?php\nclass User_model extends CI_Model {\n\tpublic function all(CI_Input $in) {}\n}\n"), 0644))
	target := filepath.Join(t.TempDir(), "shop_ci4")

	names, res, err := New(legacy, target, DefaultNamespaces()).Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mapping.ModelNames{"Users": "UsersModel"}, names)

	out := read(t, filepath.Join(target, "app", "Models", "UsersModel.php"))
	assert.Contains(t, out, "class User_model extends CI_Model {")
	assert.Contains(t, out, `\CodeIgniter\HTTP\IncomingRequest $in`)

	var found bool
	for _, d := range res.Diagnostics {
		if d.Rule == "model-declaration" {
			found = true
			assert.Contains(t, d.Message, "declaration kept")
			assert.Contains(t, d.Message, "found `class User_model extends CI_Model`")
		}
	}
	assert.True(t, found)
}

func TestMigrator_Views(t *testing.T) {
	m, _, target := setup(t)
	res, err := m.Views(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Artifacts, 2)

	assert.Equal(t, "<h1><?= $title ?></h1>\n<?= validation_show_error('email') ?>\n",
		read(t, filepath.Join(target, "app", "Views", "home.php")))
	assert.Equal(t, "<a href=\"<?= site_url('home') ?>\">Home</a>\n",
		read(t, filepath.Join(target, "app", "Views", "partials", "menu.php")))
}

func TestMigrator_Config(t *testing.T) {
	m, _, target := setup(t)
	res, err := m.Config(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Artifacts, 2, "autoload.php is absent and skipped")

	app := read(t, filepath.Join(target, "app", "Config", "LegacyApp.php"))
	assert.Contains(t, app, "class LegacyApp extends BaseConfig")
	assert.Contains(t, app, "public $base_url = 'http://x';")
	assert.NotContains(t, app, "proxy_ips")

	db := read(t, filepath.Join(target, "app", "Config", "LegacyDatabase.php"))
	assert.Contains(t, db, "class LegacyDatabase extends BaseConfig\n{\n}")
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "config/database.php", res.Diagnostics[0].File)
}

func TestMigrator_Routes(t *testing.T) {
	m, _, target := setup(t)
	res, err := m.Routes(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Artifacts, 1)

	out := read(t, filepath.Join(target, "app", "Config", "Routes.php"))
	assert.Contains(t, out, "$routes->add('default_controller', 'welcome');")
	assert.Contains(t, out, "$routes->add('404_override', '');")
	assert.Contains(t, out, "@var RouteCollection $routes")
	assert.NotContains(t, out, "BASEPATH")
}

func TestMigrator_HelpersAndLibraries(t *testing.T) {
	m, _, target := setup(t)
	ctx := context.Background()

	res, err := m.Helpers(ctx)
	require.NoError(t, err)
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, "<?php\nnamespace App\\Helpers;\n\nfunction money($v) { return $v; }\n",
		read(t, filepath.Join(target, "app", "Helpers", "money_helper.php")))

	res, err = m.Libraries(ctx)
	require.NoError(t, err)
	require.Len(t, res.Artifacts, 1, "only php files are migrated")
	assert.Equal(t, "<?php\nnamespace App\\Libraries;\n\nclass Slugger {}\n",
		read(t, filepath.Join(target, "app", "Libraries", "Slugger.php")))
}

func TestMigrator_MissingDirectories(t *testing.T) {
	legacy := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(legacy, "application"), 0755))
	m := New(legacy, t.TempDir(), DefaultNamespaces())
	ctx := context.Background()

	names, res, err := m.Models(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Empty(t, res.Artifacts)

	for _, run := range []func(context.Context) (*Result, error){m.Views, m.Config, m.Routes, m.Helpers, m.Libraries} {
		res, err := run(ctx)
		require.NoError(t, err)
		assert.Empty(t, res.Artifacts)
	}
}
