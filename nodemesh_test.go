package nodemesh

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/node"
	"github.com/hupe1980/nodemesh/param"
)

type greeting struct {
	Text string
}

const paramsYAML = `
/**:
  ros__parameters:
    rate: 1
    label: shared
/talker:
  ros__parameters:
    rate: 5
`

func TestMesh_OverridePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(paramsYAML), 0o600))

	mesh := New(func(o *Options) {
		o.ParamsFile = path
		o.Overrides = map[string]param.ParameterValue{"label": param.StringValue("mesh")}
	})
	defer func() { require.NoError(t, mesh.Close()) }()

	talker, err := mesh.NewNode("talker", func(o *NodeOptions) {
		o.Overrides = map[string]param.ParameterValue{"label": param.StringValue("node")}
	})
	require.NoError(t, err)
	listener, err := mesh.NewNode("listener")
	require.NoError(t, err)

	rate, err := node.DeclareParameter(talker, "rate", 10)
	require.NoError(t, err)
	assert.Equal(t, 5, rate)
	label, err := node.DeclareParameter(talker, "label", "default")
	require.NoError(t, err)
	assert.Equal(t, "node", label)

	rate, err = node.DeclareParameter(listener, "rate", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, rate)
	label, err = node.DeclareParameter(listener, "label", "default")
	require.NoError(t, err)
	assert.Equal(t, "mesh", label)
}

func TestMesh_MissingParamsFile(t *testing.T) {
	mesh := New(func(o *Options) { o.ParamsFile = filepath.Join(t.TempDir(), "missing.yaml") })
	defer mesh.Close()

	_, err := mesh.NewNode("talker")
	require.Error(t, err)
}

func TestMesh_TalkerListener(t *testing.T) {
	mesh := New()
	talker, err := mesh.NewNode("talker", func(o *NodeOptions) { o.Namespace = "/demo" })
	require.NoError(t, err)
	listener, err := mesh.NewNode("listener", func(o *NodeOptions) { o.Namespace = "/demo" })
	require.NoError(t, err)

	received := make(chan greeting, 1)
	sub, err := node.CreateSubscription(listener, "chatter", core.KeepLast(10), func(g greeting) { received <- g })
	require.NoError(t, err)
	pub, err := node.CreatePublisher[greeting](talker, "chatter", core.KeepLast(10))
	require.NoError(t, err)
	assert.Equal(t, []string{core.TypeNameOf[greeting]()}, mesh.Topics()["/demo/chatter"])

	require.NoError(t, listener.ActivateEntities())
	require.NoError(t, talker.ActivateEntities())
	require.NoError(t, pub.Publish(greeting{Text: "hi"}))

	select {
	case g := <-received:
		assert.Equal(t, "hi", g.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
	runtime.KeepAlive(sub)

	require.NoError(t, mesh.Close())
	assert.Empty(t, mesh.Topics())
	assert.Empty(t, mesh.Services())
}
