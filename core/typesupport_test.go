package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pose struct {
	X, Y float64
}

type chatter struct {
	Data string
}

func (chatter) MessageTypeName() string { return "std_msgs/msg/String" }

type odometry struct{ Seq int }

func (*odometry) MessageTypeName() string { return "nav_msgs/msg/Odometry" }

type addRequest struct{ A, B int64 }
type addResponse struct{ Sum int64 }

func TestTypeNameOf(t *testing.T) {
	assert.Equal(t, "core/msg/pose", TypeNameOf[pose]())
	assert.Equal(t, "std_msgs/msg/String", TypeNameOf[chatter]())
	assert.Equal(t, "core/srv/add", serviceTypeNameOf[addRequest]())
}

func TestTypeNameOf_PointerTypes(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Equal(t, "std_msgs/msg/String", TypeNameOf[*chatter]())
	})
	assert.Equal(t, "nav_msgs/msg/Odometry", TypeNameOf[odometry]())
	assert.Equal(t, "nav_msgs/msg/Odometry", TypeNameOf[*odometry]())
	assert.Equal(t, "core/msg/pose", TypeNameOf[*pose]())
	assert.Equal(t, "core/srv/add", serviceTypeNameOf[*addRequest]())
}

func TestTypeSupport_RoundTrip(t *testing.T) {
	ts, err := TypeSupportFor[pose]()
	require.NoError(t, err)

	again, err := TypeSupportFor[pose]()
	require.NoError(t, err)
	assert.Same(t, ts, again)

	msg, err := ts.Serialize(&pose{X: 1.5, Y: -2})
	require.NoError(t, err)
	assert.Equal(t, "core/msg/pose", msg.TypeName)

	out := ts.New().(*pose)
	require.NoError(t, ts.Unmarshal(msg.Data, out))
	assert.Equal(t, pose{X: 1.5, Y: -2}, *out)

	found, ok := DefaultTypeRegistry.Lookup("core/msg/pose")
	require.True(t, ok)
	assert.Same(t, ts, found)
}

func TestRegisterType_Conflict(t *testing.T) {
	r := NewTypeRegistry()
	_, err := RegisterType[pose](r, "geometry/msg/Pose")
	require.NoError(t, err)

	_, err = RegisterType[pose](r, "geometry/msg/Pose")
	require.NoError(t, err)

	_, err = RegisterType[chatter](r, "geometry/msg/Pose")
	assert.True(t, errors.Is(err, ErrTypeConflict))
}

func TestServiceTypeSupportFor(t *testing.T) {
	sts, err := ServiceTypeSupportFor[addRequest, addResponse]()
	require.NoError(t, err)
	assert.Equal(t, "core/srv/add", sts.Name)
	assert.Equal(t, "core/msg/addRequest", sts.Request.Name)

	found, ok := DefaultTypeRegistry.LookupService("core/srv/add")
	require.True(t, ok)
	assert.Same(t, sts, found)
}

func TestTransportConstructionError(t *testing.T) {
	err := NewTransportConstructionError(KindPublisher, "/chatter", "std_msgs/msg/String", ErrTypeConflict)
	assert.True(t, errors.Is(err, ErrTypeConflict))
	assert.Contains(t, err.Error(), `cannot create publisher "/chatter" [std_msgs/msg/String]`)
}
