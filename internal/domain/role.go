package domain

// Role is the secret identity dealt to a player at game start.
type Role string

const (
	RoleCivilian  Role = "CIVILIAN"
	RoleOutsider  Role = "OUTSIDER"
	RoleChameleon Role = "CHAMELEON"
	RoleDictator  Role = "DICTATOR"
)

func (r Role) String() string {
	return string(r)
}

// SeesOutsiderWord reports whether the role is dealt the outsider word.
// Everyone else, Chameleon included, draws from the civilian word.
func (r Role) SeesOutsiderWord() bool {
	return r == RoleOutsider
}
