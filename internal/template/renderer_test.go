package template

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLoader map[string]string

func (l mapLoader) Load(name string) (string, error) {
	text, ok := l[name]
	if !ok {
		return "", fmt.Errorf("template %q not found", name)
	}

	return text, nil
}

func render(t *testing.T, text string, frame Frame, loader Loader) (*Result, error) {
	t.Helper()

	tpl, err := Parse("test", text)
	require.NoError(t, err)

	if loader == nil {
		loader = mapLoader{}
	}

	return NewRenderer(loader).Render(tpl, NewContext(frame))
}

func Test_Render_Substitution(t *testing.T) {
	result, err := render(t, "route {{a}} to {{b}}", Frame{
		"a": "10.0.0.0/24",
		"b": "10.0.1.0/24",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "route 10.0.0.0/24 to 10.0.1.0/24", string(result.Output))
	assert.Empty(t, result.Inserts)
}

func Test_Render_CanonicalForms(t *testing.T) {
	_, subnet, err := net.ParseCIDR("10.0.1.0/24")
	require.NoError(t, err)

	result, err := render(t, "{{port}} {{gateway}} {{subnet}}", Frame{
		"port":    1194,
		"gateway": net.ParseIP("10.0.1.1"),
		"subnet":  *subnet,
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "1194 10.0.1.1 10.0.1.0/24", string(result.Output))
}

func Test_Render_Loop(t *testing.T) {
	result, err := render(t, "{% for q in queues %}N={{q.name}} {% end_for %}", Frame{
		"queues": []Frame{{"name": "A"}, {"name": "B"}},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "N=A N=B ", string(result.Output))
}

func Test_Render_NestedLoops(t *testing.T) {
	// Outer loop varies slowest: the Cartesian product in document
	// order is what expands an N x N route mesh.
	text := "{% for a in queues %}{% for b in queues %}{{a.name}}{{b.name}} {% end_for %}{% end_for %}"

	result, err := render(t, text, Frame{
		"queues": []Frame{{"name": "A"}, {"name": "B"}},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "AA AB BA BB ", string(result.Output))
}

func Test_Render_LoopSeesEnclosingScope(t *testing.T) {
	result, err := render(t, "{% for q in queues %}{{project}}-{{q.name}} {% end_for %}", Frame{
		"project": "vhpc",
		"queues":  []Frame{{"name": "A"}},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "vhpc-A ", string(result.Output))
}

func Test_Render_UnresolvedName(t *testing.T) {
	_, err := render(t, "route {{missing}}", Frame{}, nil)

	assert.ErrorIs(t, err, ErrUnresolvedName)
}

func Test_Render_LoopOverScalar(t *testing.T) {
	_, err := render(t, "{% for q in project %}{% end_for %}", Frame{
		"project": "vhpc",
	}, nil)

	assert.ErrorIs(t, err, ErrUnresolvedName)
}

func Test_Render_Insert(t *testing.T) {
	loader := mapLoader{
		"vpn.conf": "port {{port}}\n",
	}

	result, err := render(t, "before\n{% insert 'vpn.conf' in '/etc/openvpn/{{name}}.conf' %}after\n", Frame{
		"name": "gpu",
		"port": 1201,
	}, loader)

	require.NoError(t, err)

	// Nothing is substituted at the insertion site.
	assert.Equal(t, "before\nafter\n", string(result.Output))

	require.Len(t, result.Inserts, 1)
	assert.Equal(t, "/etc/openvpn/gpu.conf", result.Inserts[0].DestinationPath)
	assert.Equal(t, "port 1201\n", string(result.Inserts[0].Content))
}

func Test_Render_InsertInheritsLoopAlias(t *testing.T) {
	loader := mapLoader{
		"queue.conf": "name {{q.name}}\n",
	}

	result, err := render(t, "{% for q in queues %}{% insert 'queue.conf' in '/etc/{{q.name}}.conf' %}{% end_for %}", Frame{
		"queues": []Frame{{"name": "A"}, {"name": "B"}},
	}, loader)

	require.NoError(t, err)
	require.Len(t, result.Inserts, 2)
	assert.Equal(t, "/etc/A.conf", result.Inserts[0].DestinationPath)
	assert.Equal(t, "name A\n", string(result.Inserts[0].Content))
	assert.Equal(t, "/etc/B.conf", result.Inserts[1].DestinationPath)
	assert.Equal(t, "name B\n", string(result.Inserts[1].Content))
}

func Test_Render_InsertConflict(t *testing.T) {
	loader := mapLoader{
		"queue.conf": "name {{q.name}}\n",
	}

	_, err := render(t, "{% for q in queues %}{% insert 'queue.conf' in '/etc/queue.conf' %}{% end_for %}", Frame{
		"queues": []Frame{{"name": "A"}, {"name": "B"}},
	}, loader)

	assert.ErrorIs(t, err, ErrInsertionConflict)
}

func Test_Render_InsertSameContentDeduplicated(t *testing.T) {
	loader := mapLoader{
		"static.conf": "port {{port}}\n",
	}

	result, err := render(t, "{% for q in queues %}{% insert 'static.conf' in '/etc/static.conf' %}{% end_for %}", Frame{
		"port":   1194,
		"queues": []Frame{{"name": "A"}, {"name": "B"}},
	}, loader)

	require.NoError(t, err)
	require.Len(t, result.Inserts, 1)
	assert.Equal(t, "/etc/static.conf", result.Inserts[0].DestinationPath)
}

func Test_Render_NestedInsert(t *testing.T) {
	loader := mapLoader{
		"outer.conf": "outer\n{% insert 'inner.conf' in '/etc/inner.conf' %}",
		"inner.conf": "inner {{name}}\n",
	}

	result, err := render(t, "{% insert 'outer.conf' in '/etc/outer.conf' %}", Frame{
		"name": "gpu",
	}, loader)

	require.NoError(t, err)
	require.Len(t, result.Inserts, 2)
	assert.Equal(t, "/etc/inner.conf", result.Inserts[0].DestinationPath)
	assert.Equal(t, "inner gpu\n", string(result.Inserts[0].Content))
	assert.Equal(t, "/etc/outer.conf", result.Inserts[1].DestinationPath)
	assert.Equal(t, "outer\n", string(result.Inserts[1].Content))
}

func Test_Render_RecursiveInsert(t *testing.T) {
	loader := mapLoader{
		"loop.conf": "{% insert 'loop.conf' in '/etc/loop.conf' %}",
	}

	_, err := render(t, "{% insert 'loop.conf' in '/etc/a.conf' %}", Frame{}, loader)

	assert.ErrorIs(t, err, ErrTemplateSyntax)
}

func Test_Render_Idempotent(t *testing.T) {
	loader := mapLoader{
		"routes.conf": "{% for q in queues %}route {{q.subnet}}\n{% end_for %}",
	}
	text := "{% for q in queues %}{{q.name}}:{% insert 'routes.conf' in '/etc/{{q.name}}-routes.conf' %}\n{% end_for %}"
	frame := Frame{
		"queues": []Frame{
			{"name": "A", "subnet": "10.0.1.0/24"},
			{"name": "B", "subnet": "10.0.2.0/24"},
		},
	}

	tpl, err := Parse("test", text)
	require.NoError(t, err)

	renderer := NewRenderer(loader)

	first, err := renderer.Render(tpl, NewContext(frame))
	require.NoError(t, err)

	second, err := renderer.Render(tpl, NewContext(frame))
	require.NoError(t, err)

	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, first.Inserts, second.Inserts)
}
