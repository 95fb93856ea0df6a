// Package adminui implements the interactive fleet administration TUI
// using Bubble Tea. It talks straight to the database: registry edits
// deliberately have no HTTP surface, so this is the only way in.
package adminui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"campusgate/internal/auth"
	"campusgate/internal/db"
	"campusgate/internal/validate"
)

// state represents the current screen in the admin UI.
type state int

const (
	stateVehicles state = iota
	stateNewVehicle
	stateUsers
	stateNewUser
	stateSetPassword
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	helpStyle  = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Model holds all UI state for the admin TUI.
type Model struct {
	db *db.DB

	st  state
	err string

	vehicleLst list.Model
	userLst    list.Model

	newPlate      textinput.Model
	newOwner      textinput.Model
	newAuthorized bool

	newUsername textinput.Model
	newPassword textinput.Model
	newFullName textinput.Model
	newRole     textinput.Model

	setPw textinput.Model
}

// New constructs a UI model and initializes inputs and lists.
func New(d *db.DB) Model {
	vehicleLst := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	vehicleLst.Title = "Vehicles"

	userLst := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	userLst.Title = "Operators"

	m := Model{db: d, st: stateVehicles, vehicleLst: vehicleLst, userLst: userLst}

	m.newPlate = textinput.New()
	m.newPlate.Placeholder = "MH12AB1234"
	m.newPlate.Prompt = "Plate: "
	m.newOwner = textinput.New()
	m.newOwner.Placeholder = "owner name"
	m.newOwner.Prompt = "Owner: "

	m.newUsername = textinput.New()
	m.newUsername.Placeholder = "username"
	m.newUsername.Prompt = "Username: "
	m.newPassword = textinput.New()
	m.newPassword.Placeholder = "password"
	m.newPassword.EchoMode = textinput.EchoPassword
	m.newPassword.Prompt = "Password: "
	m.newFullName = textinput.New()
	m.newFullName.Placeholder = "full name"
	m.newFullName.Prompt = "Full name: "
	m.newRole = textinput.New()
	m.newRole.Placeholder = "admin|student|faculty"
	m.newRole.Prompt = "Role: "

	m.setPw = textinput.New()
	m.setPw.Placeholder = "new password"
	m.setPw.EchoMode = textinput.EchoPassword
	m.setPw.Prompt = "New password: "

	return m
}

// Init loads the vehicle list immediately; there is no login screen.
func (m Model) Init() tea.Cmd {
	return refreshVehiclesCmd(m.db)
}

type errMsg string
type vehiclesMsg []db.Vehicle
type usersMsg []db.User
type okMsg struct{}

// Update routes messages based on UI state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.vehicleLst.SetSize(msg.Width-4, msg.Height-8)
		m.userLst.SetSize(msg.Width-4, msg.Height-8)
		return m, nil
	case errMsg:
		m.err = string(msg)
		return m, nil
	case vehiclesMsg:
		items := make([]list.Item, 0, len(msg))
		for _, v := range msg {
			items = append(items, vehicleItem(v))
		}
		m.vehicleLst.SetItems(items)
		m.err = ""
		return m, nil
	case usersMsg:
		items := make([]list.Item, 0, len(msg))
		for _, u := range msg {
			items = append(items, userItem(u))
		}
		m.userLst.SetItems(items)
		m.err = ""
		return m, nil
	case okMsg:
		m.err = ""
		return m, nil
	}

	switch m.st {
	case stateVehicles:
		return m.updateVehicles(msg)
	case stateNewVehicle:
		return m.updateNewVehicle(msg)
	case stateUsers:
		return m.updateUsers(msg)
	case stateNewUser:
		return m.updateNewUser(msg)
	case stateSetPassword:
		return m.updateSetPassword(msg)
	default:
		return m, nil
	}
}

// updateVehicles handles keys on the vehicle registry screen.
func (m Model) updateVehicles(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.vehicleLst, cmd = m.vehicleLst.Update(msg)
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, refreshVehiclesCmd(m.db)
		case "n":
			m.st = stateNewVehicle
			m.err = ""
			m.newPlate.SetValue("")
			m.newOwner.SetValue("")
			m.newAuthorized = true
			m.newPlate.Focus()
			return m, nil
		case "a":
			v, ok := m.selectedVehicle()
			if !ok {
				return m, nil
			}
			return m, tea.Sequence(toggleVehicleCmd(m.db, v.Plate, !v.Authorized), refreshVehiclesCmd(m.db))
		case "d":
			v, ok := m.selectedVehicle()
			if !ok {
				return m, nil
			}
			return m, tea.Sequence(deleteVehicleCmd(m.db, v.Plate), refreshVehiclesCmd(m.db))
		case "u":
			m.st = stateUsers
			m.err = ""
			return m, refreshUsersCmd(m.db)
		}
	}
	return m, cmd
}

// updateNewVehicle handles input while registering a vehicle.
func (m Model) updateNewVehicle(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.st = stateVehicles
			return m, refreshVehiclesCmd(m.db)
		case "alt+a":
			m.newAuthorized = !m.newAuthorized
			return m, nil
		case "enter":
			save := upsertVehicleCmd(m.db, m.newPlate.Value(), m.newOwner.Value(), m.newAuthorized)
			m.st = stateVehicles
			return m, tea.Sequence(save, refreshVehiclesCmd(m.db))
		}
	}

	// Focus order: plate -> owner
	var cmd tea.Cmd
	if m.newPlate.Focused() {
		m.newPlate, cmd = m.newPlate.Update(msg)
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "tab" {
			m.newPlate.Blur()
			m.newOwner.Focus()
		}
		return m, cmd
	}
	m.newOwner, cmd = m.newOwner.Update(msg)
	return m, cmd
}

// updateUsers handles keys on the operator accounts screen.
func (m Model) updateUsers(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.userLst, cmd = m.userLst.Update(msg)
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, refreshUsersCmd(m.db)
		case "n":
			m.st = stateNewUser
			m.err = ""
			m.newUsername.SetValue("")
			m.newPassword.SetValue("")
			m.newFullName.SetValue("")
			m.newRole.SetValue("student")
			m.newUsername.Focus()
			return m, nil
		case "p":
			if _, ok := m.selectedUser(); !ok {
				return m, nil
			}
			m.st = stateSetPassword
			m.err = ""
			m.setPw.SetValue("")
			m.setPw.Focus()
			return m, nil
		case "d":
			u, ok := m.selectedUser()
			if !ok {
				return m, nil
			}
			return m, tea.Sequence(deleteUserCmd(m.db, u.ID), refreshUsersCmd(m.db))
		case "v":
			m.st = stateVehicles
			m.err = ""
			return m, refreshVehiclesCmd(m.db)
		}
	}
	return m, cmd
}

// updateNewUser handles input while creating an operator account.
func (m Model) updateNewUser(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.st = stateUsers
			return m, refreshUsersCmd(m.db)
		case "enter":
			save := createUserCmd(m.db,
				m.newUsername.Value(),
				m.newPassword.Value(),
				m.newFullName.Value(),
				m.newRole.Value(),
			)
			m.st = stateUsers
			return m, tea.Sequence(save, refreshUsersCmd(m.db))
		}
	}

	// Focus order: username -> password -> full name -> role
	var cmd tea.Cmd
	if m.newUsername.Focused() {
		m.newUsername, cmd = m.newUsername.Update(msg)
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "tab" {
			m.newUsername.Blur()
			m.newPassword.Focus()
		}
		return m, cmd
	}
	if m.newPassword.Focused() {
		m.newPassword, cmd = m.newPassword.Update(msg)
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "tab" {
			m.newPassword.Blur()
			m.newFullName.Focus()
		}
		return m, cmd
	}
	if m.newFullName.Focused() {
		m.newFullName, cmd = m.newFullName.Update(msg)
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "tab" {
			m.newFullName.Blur()
			m.newRole.Focus()
		}
		return m, cmd
	}
	m.newRole, cmd = m.newRole.Update(msg)
	return m, cmd
}

// updateSetPassword handles input while resetting an operator password.
func (m Model) updateSetPassword(msg tea.Msg) (tea.Model, tea.Cmd) {
	u, ok := m.selectedUser()
	if !ok {
		m.st = stateUsers
		return m, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.st = stateUsers
			return m, nil
		case "enter":
			save := setPasswordCmd(m.db, u.ID, m.setPw.Value())
			m.st = stateUsers
			return m, tea.Sequence(save, refreshUsersCmd(m.db))
		}
	}
	var cmd tea.Cmd
	m.setPw, cmd = m.setPw.Update(msg)
	return m, cmd
}

// View renders the current screen as a string.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("CampusGate fleet admin"))
	b.WriteString("\n\n")

	switch m.st {
	case stateVehicles:
		b.WriteString(m.vehicleLst.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("Keys: n=new a=toggle-authorized d=delete u=operators r=refresh q=quit"))
		b.WriteString("\n")
	case stateNewVehicle:
		b.WriteString("Register vehicle\n\n")
		b.WriteString(m.newPlate.View() + "\n")
		b.WriteString(m.newOwner.View() + "\n")
		b.WriteString(fmt.Sprintf("Authorized: %v (toggle with alt+a)\n\n", m.newAuthorized))
		b.WriteString(helpStyle.Render("Enter=save  esc=back"))
		b.WriteString("\n")
	case stateUsers:
		b.WriteString(m.userLst.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("Keys: n=new p=set-pass d=delete v=vehicles r=refresh q=quit"))
		b.WriteString("\n")
	case stateNewUser:
		b.WriteString("Create operator\n\n")
		b.WriteString(m.newUsername.View() + "\n")
		b.WriteString(m.newPassword.View() + "\n")
		b.WriteString(m.newFullName.View() + "\n")
		b.WriteString(m.newRole.View() + "\n\n")
		b.WriteString(helpStyle.Render("Enter=save  esc=back"))
		b.WriteString("\n")
	case stateSetPassword:
		if u, ok := m.selectedUser(); ok {
			b.WriteString("Set password for: " + u.Username + "\n\n")
		}
		b.WriteString(m.setPw.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("Enter=save  esc=back"))
		b.WriteString("\n")
	}

	if m.err != "" {
		b.WriteString("\n" + errStyle.Render("Error: "+m.err) + "\n")
	}

	return b.String()
}

type vehicleItem db.Vehicle

func (v vehicleItem) Title() string {
	if v.Authorized {
		return v.Plate
	}
	return v.Plate + " [BLOCKED]"
}
func (v vehicleItem) Description() string {
	return fmt.Sprintf("owner=%s authorized=%v", v.Owner, v.Authorized)
}
func (v vehicleItem) FilterValue() string { return v.Plate }

type userItem db.User

func (u userItem) Title() string { return u.Username }
func (u userItem) Description() string {
	return fmt.Sprintf("name=%s role=%s", u.FullName, u.Role)
}
func (u userItem) FilterValue() string { return u.Username }

// selectedVehicle returns the currently highlighted registry entry.
func (m *Model) selectedVehicle() (db.Vehicle, bool) {
	if it, ok := m.vehicleLst.SelectedItem().(vehicleItem); ok {
		return db.Vehicle(it), true
	}
	return db.Vehicle{}, false
}

// selectedUser returns the currently highlighted operator entry.
func (m *Model) selectedUser() (db.User, bool) {
	if it, ok := m.userLst.SelectedItem().(userItem); ok {
		return db.User(it), true
	}
	return db.User{}, false
}

func refreshVehiclesCmd(d *db.DB) tea.Cmd {
	return func() tea.Msg {
		vehicles, err := d.ListVehicles(context.Background())
		if err != nil {
			return errMsg(err.Error())
		}
		return vehiclesMsg(vehicles)
	}
}

func refreshUsersCmd(d *db.DB) tea.Cmd {
	return func() tea.Msg {
		users, err := d.ListUsers(context.Background())
		if err != nil {
			return errMsg(err.Error())
		}
		return usersMsg(users)
	}
}

func upsertVehicleCmd(d *db.DB, plate, owner string, authorized bool) tea.Cmd {
	return func() tea.Msg {
		plate = strings.TrimSpace(plate)
		owner = strings.TrimSpace(owner)
		if plate == "" {
			return errMsg("plate is required")
		}
		if owner == "" {
			return errMsg("owner is required")
		}
		if err := d.UpsertVehicle(context.Background(), plate, owner, authorized); err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}

func toggleVehicleCmd(d *db.DB, plate string, authorized bool) tea.Cmd {
	return func() tea.Msg {
		if err := d.SetVehicleAuthorized(context.Background(), plate, authorized); err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}

func deleteVehicleCmd(d *db.DB, plate string) tea.Cmd {
	return func() tea.Msg {
		if err := d.DeleteVehicle(context.Background(), plate); err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}

func createUserCmd(d *db.DB, username, password, fullName, role string) tea.Cmd {
	return func() tea.Msg {
		username = strings.TrimSpace(username)
		fullName = strings.TrimSpace(fullName)
		role = strings.TrimSpace(role)
		if err := validate.Username(username); err != nil {
			return errMsg(err.Error())
		}
		if err := validate.Role(role); err != nil {
			return errMsg(err.Error())
		}
		if password == "" {
			return errMsg("password is required")
		}
		if fullName == "" {
			fullName = username
		}
		hash, err := auth.HashPassword(password, auth.DefaultArgon2Params())
		if err != nil {
			return errMsg(err.Error())
		}
		if _, err := d.CreateUser(context.Background(), username, hash, fullName, role); err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}

func setPasswordCmd(d *db.DB, id int64, password string) tea.Cmd {
	return func() tea.Msg {
		if password == "" {
			return errMsg("password is required")
		}
		hash, err := auth.HashPassword(password, auth.DefaultArgon2Params())
		if err != nil {
			return errMsg(err.Error())
		}
		if err := d.SetUserPasswordHash(context.Background(), id, hash); err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}

func deleteUserCmd(d *db.DB, id int64) tea.Cmd {
	return func() tea.Msg {
		if err := d.DeleteUser(context.Background(), id); err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}
