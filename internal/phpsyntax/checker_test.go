package phpsyntax

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_Check(t *testing.T) {
	c := NewChecker()
	ctx := context.Background()

	t.Run("clean controller", func(t *testing.T) {
		src := []byte(`<?php
namespace App\Controllers;

use App\Models\UserModel;

class Home extends BaseController
{
    public function index()
    {
        $data['users'] = UserModel::findAll();
        return view('home', $data);
    }
}
`)
		problems, err := c.Check(ctx, src)
		require.NoError(t, err)
		assert.Empty(t, problems)
	})

	t.Run("view template", func(t *testing.T) {
		problems, err := c.Check(ctx, []byte("<h1><?= $title ?></h1>\n<?= form_open('login') ?>\n"))
		require.NoError(t, err)
		assert.Empty(t, problems)
	})

	t.Run("broken statement", func(t *testing.T) {
		src := []byte("<?php\nclass A\n{\n    public function a()\n    {\n        $x = return view('a');\n    }\n}\n")
		problems, err := c.Check(ctx, src)
		require.NoError(t, err)
		require.NotEmpty(t, problems)
		assert.Greater(t, problems[0].Line, 0)
	})

	t.Run("multibyte snippet", func(t *testing.T) {
		src := []byte("<?php\n$x = = '" + strings.Repeat("é", 60) + "';\n")
		problems, err := c.Check(ctx, src)
		require.NoError(t, err)
		require.NotEmpty(t, problems)
		for _, p := range problems {
			assert.True(t, utf8.ValidString(p.Snippet), p.Snippet)
			assert.LessOrEqual(t, utf8.RuneCountInString(p.Snippet), 40)
		}
	})
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abc", clip("abc", 40))
	assert.Equal(t, "éé", clip("ééé", 2))
	assert.Equal(t, strings.Repeat("ü", 40), clip(strings.Repeat("ü", 41), 40))
}

func TestChecker_Classes(t *testing.T) {
	c := NewChecker()
	src := []byte(`<?php
class Blog_model extends MY_Model
{
}

class Plain {}
`)
	classes, err := c.Classes(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, ClassDecl{Name: "Blog_model", Base: "MY_Model", Line: 2}, classes[0])
	assert.Equal(t, ClassDecl{Name: "Plain", Line: 6}, classes[1])
}
