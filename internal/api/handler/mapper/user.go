package mapper

import (
	"api/internal/api/handler/request"
	"api/internal/api/handler/response"
	"api/internal/api/models"
)

type UserMapper struct{}

func (UserMapper) DtoToUpdate(req request.UpdateUser, user *models.User) {
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Prenom != nil {
		user.Prenom = *req.Prenom
	}
	if req.Nom != nil {
		user.Nom = *req.Nom
	}
	if req.Actif != nil {
		user.Actif = *req.Actif
	}
}

func (UserMapper) EntityToUserResponse(user models.User) response.UserResponseDTO {
	return response.UserResponseDTO{
		ID:     user.ID,
		Email:  user.Email,
		Prenom: user.Prenom,
		Nom:    user.Nom,
		Actif:  user.Actif,
	}
}
