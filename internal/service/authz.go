package service

import "blogsite/internal/models"

// CanModifyPost reports whether actor may edit or delete post: its author or any superuser.
func CanModifyPost(actor *models.User, post *models.Post) bool {
	if actor == nil || post == nil {
		return false
	}
	return actor.ID == post.AuthorID || actor.IsSuperuser
}

func actorID(actor *models.User) uint {
	if actor == nil {
		return 0
	}
	return actor.ID
}
