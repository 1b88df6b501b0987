package router

import "github.com/google/uuid"

func newGroupID() string {
	return uuid.NewString()
}
