package account

import "errors"

var ErrUnknownRole = errors.New("unknown role")

// Principal is the verified identity of a caller. The concrete type carries the
// capability: Admin or Worker. Callers switch on the type instead of comparing role strings.
type Principal interface {
	AccountID() string
	Role() Role
	principal()
}

type Admin struct {
	ID string
}

func (a Admin) AccountID() string { return a.ID }
func (Admin) Role() Role          { return RoleAdmin }
func (Admin) principal()          {}

type Worker struct {
	ID string
}

func (w Worker) AccountID() string { return w.ID }
func (Worker) Role() Role          { return RoleWorker }
func (Worker) principal()          {}

// PrincipalFor maps a role claim to its capability type.
func PrincipalFor(id string, role Role) (Principal, error) {
	switch role {
	case RoleAdmin:
		return Admin{ID: id}, nil
	case RoleWorker:
		return Worker{ID: id}, nil
	default:
		return nil, ErrUnknownRole
	}
}

func PrincipalOf(a Account) (Principal, error) {
	return PrincipalFor(a.ID, a.Role)
}
