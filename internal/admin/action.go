package admin

// Action is the closed set of administrative mutations. Dispatch is a total
// switch over these values; there is no string sniffing on the action name.
type Action string

const (
	// ActionNone performs no mutation and just returns the tables.
	ActionNone       Action = "none"
	ActionGenerate   Action = "generate"
	ActionBanUser    Action = "ban_user"
	ActionUnbanUser  Action = "unban_user"
	ActionDeleteUser Action = "delete_user"
	ActionBanKey     Action = "ban_key"
	ActionUnbanKey   Action = "unban_key"
	ActionDeleteKey  Action = "delete_key"
)

func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionNone, ActionGenerate,
		ActionBanUser, ActionUnbanUser, ActionDeleteUser,
		ActionBanKey, ActionUnbanKey, ActionDeleteKey:
		return Action(s), true
	}
	return "", false
}
