package menu

import (
	"fmt"
	"strings"

	"github.com/memohub/memo-gateway/internal/state"
)

// State identifies which menu view is showing.
type State int

const (
	Root State = iota
	ProjectsSwitch
	ProjectsDelete
	Settings
)

// Callback tokens carried in inline-button payloads. Project actions
// use the "action|argument" form.
const (
	CallbackRoot         = "back_to_root"
	CallbackProjects     = "menu_projects"
	CallbackSettings     = "menu_settings"
	CallbackClose        = "close_menu"
	CallbackDeleteMenu   = "show_delete_menu"
	CallbackNewPrompt    = "new_proj_prompt"
	CallbackToggleVoice  = "toggle_voice"
	CallbackInfo         = "show_info"
	actionSwitch         = "switch"
	actionDelete         = "delete"
)

// MainMenuButton is the reply-keyboard shortcut that opens the root menu.
const MainMenuButton = "🔘 Главное меню"

// Button is one inline keyboard button.
type Button struct {
	Label string
	Data  string
}

// View is a rendered menu the transport should show. Text uses legacy
// Markdown.
type View struct {
	State    State
	Text     string
	Keyboard [][]Button
}

// Result is the outcome of a callback interaction.
type Result struct {
	View      *View  // re-render the menu when set
	Alert     string // answer text shown to the user
	ShowAlert bool   // popup instead of toast
	Close     bool   // delete the menu message
}

// Controller interprets menu interactions and mutates the store.
type Controller struct {
	store *state.Store
	info  string
}

// New creates a menu controller. info is the text behind the info button.
func New(store *state.Store, info string) *Controller {
	return &Controller{store: store, info: info}
}

// RootView renders the root menu.
func (c *Controller) RootView() View {
	return View{
		State: Root,
		Text:  "👋 **Меню Мемо**",
		Keyboard: [][]Button{
			{
				{Label: "📂 Проекты", Data: CallbackProjects},
				{Label: "⚙️ Настройки", Data: CallbackSettings},
			},
			{{Label: "❌ Закрыть", Data: CallbackClose}},
		},
	}
}

// projectsView renders the project list, either for switching or for
// deletion. The default project is never offered for deletion.
func (c *Controller) projectsView(userID int64, st State) View {
	current := c.store.ActiveProject(userID)
	projects := c.store.ListProjects(userID)

	var keyboard [][]Button
	if st == ProjectsSwitch {
		for _, p := range projects {
			status := "⚪️"
			if p == current {
				status = "✅"
			}
			keyboard = append(keyboard, []Button{{
				Label: fmt.Sprintf("%s %s", status, p),
				Data:  actionSwitch + "|" + p,
			}})
		}
		keyboard = append(keyboard, []Button{
			{Label: "➕ Создать", Data: CallbackNewPrompt},
			{Label: "🗑 Удалить", Data: CallbackDeleteMenu},
		})
		keyboard = append(keyboard, []Button{{Label: "🔙 Назад", Data: CallbackRoot}})
		return View{
			State:    ProjectsSwitch,
			Text:     fmt.Sprintf("📂 **Проекты** (Текущий: `%s`)", current),
			Keyboard: keyboard,
		}
	}

	for _, p := range projects {
		if p == state.DefaultProject {
			continue
		}
		keyboard = append(keyboard, []Button{{
			Label: "❌ Удалить " + p,
			Data:  actionDelete + "|" + p,
		}})
	}
	keyboard = append(keyboard, []Button{{Label: "🔙 Назад", Data: CallbackProjects}})
	return View{
		State:    ProjectsDelete,
		Text:     "🗑 **Удаление проектов:**",
		Keyboard: keyboard,
	}
}

// settingsView renders the settings menu reflecting the user's current
// voice mode.
func (c *Controller) settingsView(userID int64) View {
	voiceLabel := "🔇 Голос: ВЫКЛ"
	if c.store.Settings(userID).VoiceEnabled() {
		voiceLabel = "✅ Голос: ВКЛ"
	}
	return View{
		State: Settings,
		Text:  "⚙️ **Настройки**",
		Keyboard: [][]Button{
			{{Label: voiceLabel, Data: CallbackToggleVoice}},
			{{Label: "ℹ️ Инфо", Data: CallbackInfo}},
			{{Label: "🔙 Назад", Data: CallbackRoot}},
		},
	}
}

// HandleCallback dispatches one button tap. Unknown payloads produce an
// empty result the transport treats as a no-op.
func (c *Controller) HandleCallback(userID int64, data string) Result {
	switch data {
	case CallbackRoot:
		v := c.RootView()
		return Result{View: &v}
	case CallbackProjects:
		v := c.projectsView(userID, ProjectsSwitch)
		return Result{View: &v}
	case CallbackSettings:
		v := c.settingsView(userID)
		return Result{View: &v}
	case CallbackClose:
		return Result{Close: true}
	case CallbackDeleteMenu:
		v := c.projectsView(userID, ProjectsDelete)
		return Result{View: &v}
	case CallbackNewPrompt:
		return Result{Alert: "Напишите в чат /new имя", ShowAlert: true}
	case CallbackToggleVoice:
		c.store.ToggleVoice(userID)
		v := c.settingsView(userID)
		return Result{View: &v}
	case CallbackInfo:
		return Result{Alert: c.info, ShowAlert: true}
	}

	if action, arg, ok := strings.Cut(data, "|"); ok {
		switch action {
		case actionSwitch:
			c.store.SwitchProject(userID, arg)
			v := c.projectsView(userID, ProjectsSwitch)
			return Result{View: &v, Alert: "Выбран: " + arg}
		case actionDelete:
			if c.store.DeleteProject(userID, arg) {
				v := c.projectsView(userID, ProjectsDelete)
				return Result{View: &v, Alert: "Удален: " + arg}
			}
			v := c.projectsView(userID, ProjectsDelete)
			return Result{View: &v}
		}
	}

	return Result{}
}
