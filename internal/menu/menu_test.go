package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohub/memo-gateway/internal/state"
)

func buttons(v *View) []string {
	var out []string
	for _, row := range v.Keyboard {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}

func TestRootView(t *testing.T) {
	c := New(state.NewStore(0), "info")
	v := c.RootView()
	assert.Equal(t, Root, v.State)
	assert.Contains(t, buttons(&v), CallbackProjects)
	assert.Contains(t, buttons(&v), CallbackSettings)
	assert.Contains(t, buttons(&v), CallbackClose)
}

func TestNavigationEdges(t *testing.T) {
	c := New(state.NewStore(0), "info")

	res := c.HandleCallback(1, CallbackProjects)
	require.NotNil(t, res.View)
	assert.Equal(t, ProjectsSwitch, res.View.State)

	res = c.HandleCallback(1, CallbackDeleteMenu)
	require.NotNil(t, res.View)
	assert.Equal(t, ProjectsDelete, res.View.State)

	res = c.HandleCallback(1, CallbackSettings)
	require.NotNil(t, res.View)
	assert.Equal(t, Settings, res.View.State)

	res = c.HandleCallback(1, CallbackRoot)
	require.NotNil(t, res.View)
	assert.Equal(t, Root, res.View.State)

	res = c.HandleCallback(1, CallbackClose)
	assert.Nil(t, res.View)
	assert.True(t, res.Close)
}

func TestSwitchProjectViaCallback(t *testing.T) {
	s := state.NewStore(0)
	c := New(s, "info")

	res := c.HandleCallback(7, "switch|work")
	require.NotNil(t, res.View)
	assert.Equal(t, ProjectsSwitch, res.View.State)
	assert.Equal(t, "Выбран: work", res.Alert)
	assert.Equal(t, "work", s.ActiveProject(7))

	// Active project is marked in the list.
	var marked string
	for _, row := range res.View.Keyboard {
		for _, b := range row {
			if b.Data == "switch|work" {
				marked = b.Label
			}
		}
	}
	assert.Contains(t, marked, "✅")
}

func TestDeleteProjectViaCallback(t *testing.T) {
	s := state.NewStore(0)
	c := New(s, "info")
	s.SwitchProject(7, "scratch")

	res := c.HandleCallback(7, "delete|scratch")
	require.NotNil(t, res.View)
	assert.Equal(t, "Удален: scratch", res.Alert)
	assert.Equal(t, state.DefaultProject, s.ActiveProject(7))
}

func TestDeleteMenuNeverOffersDefault(t *testing.T) {
	s := state.NewStore(0)
	c := New(s, "info")
	s.SwitchProject(7, "work")

	res := c.HandleCallback(7, CallbackDeleteMenu)
	require.NotNil(t, res.View)
	assert.NotContains(t, buttons(res.View), "delete|default")
	assert.Contains(t, buttons(res.View), "delete|work")
}

func TestDeleteDefaultIsNoOp(t *testing.T) {
	s := state.NewStore(0)
	c := New(s, "info")

	res := c.HandleCallback(7, "delete|default")
	require.NotNil(t, res.View)
	assert.Empty(t, res.Alert)
	assert.Contains(t, s.ListProjects(7), "default")
}

func TestToggleVoiceRerendersSettings(t *testing.T) {
	s := state.NewStore(0)
	c := New(s, "info")

	res := c.HandleCallback(7, CallbackToggleVoice)
	require.NotNil(t, res.View)
	assert.Equal(t, Settings, res.View.State)
	assert.False(t, s.Settings(7).VoiceEnabled())

	var label string
	for _, row := range res.View.Keyboard {
		for _, b := range row {
			if b.Data == CallbackToggleVoice {
				label = b.Label
			}
		}
	}
	assert.Contains(t, label, "ВЫКЛ")
}

func TestAlerts(t *testing.T) {
	c := New(state.NewStore(0), "Memo 🚀")

	res := c.HandleCallback(1, CallbackNewPrompt)
	assert.True(t, res.ShowAlert)
	assert.Contains(t, res.Alert, "/new")

	res = c.HandleCallback(1, CallbackInfo)
	assert.True(t, res.ShowAlert)
	assert.Equal(t, "Memo 🚀", res.Alert)
}

func TestUnknownCallbackIsNoOp(t *testing.T) {
	c := New(state.NewStore(0), "info")
	res := c.HandleCallback(1, "bogus")
	assert.Nil(t, res.View)
	assert.False(t, res.Close)
	assert.Empty(t, res.Alert)
}
