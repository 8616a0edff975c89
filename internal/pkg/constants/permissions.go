package constants

// PM modules a permission grant can target.
const (
	ModuleProjects     = "projects"
	ModuleBacklog      = "backlog"
	ModuleSprints      = "sprints"
	ModuleBoard        = "board"
	ModuleReports      = "reports"
	ModuleSettings     = "settings"
	ModuleIntegrations = "integrations"
	ModuleMembers      = "members"
)

// Actions within a module.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

var ValidModules = []string{
	ModuleProjects, ModuleBacklog, ModuleSprints, ModuleBoard,
	ModuleReports, ModuleSettings, ModuleIntegrations, ModuleMembers,
}

var ValidActions = []string{ActionView, ActionCreate, ActionEdit, ActionDelete}

// IsValidModule returns true if module is one of ValidModules.
func IsValidModule(module string) bool {
	for _, m := range ValidModules {
		if m == module {
			return true
		}
	}
	return false
}

// IsValidAction returns true if action is one of ValidActions.
func IsValidAction(action string) bool {
	for _, a := range ValidActions {
		if a == action {
			return true
		}
	}
	return false
}
