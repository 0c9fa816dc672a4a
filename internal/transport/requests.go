package transport

import (
	"bytes"
	"encoding/json"

	"classifieds/internal/domain"
	"classifieds/internal/service"

	"github.com/google/uuid"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=50"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Phone    *string `json:"phone" validate:"omitempty,max=20"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh and logout payload
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=50"`
	Phone *string `json:"phone" validate:"omitempty,max=20"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type ImageRequest struct {
	URL    string `json:"url" validate:"required,max=500"`
	IsMain bool   `json:"isMain"`
}

// CreateAdRequest represents the payload of a new ad
type CreateAdRequest struct {
	Title       string         `json:"title" validate:"required,min=3,max=100"`
	Description string         `json:"description" validate:"required,min=10,max=2000"`
	Price       *float64       `json:"price" validate:"required,gte=0"`
	CategoryID  uuid.UUID      `json:"categoryId" validate:"required"`
	Location    string         `json:"location" validate:"required,max=100"`
	Condition   string         `json:"condition" validate:"required,oneof=NEW USED REFURBISHED"`
	Images      []ImageRequest `json:"images" validate:"omitempty,max=10,dive"`
}

func (req CreateAdRequest) toInput() service.AdInput {
	images := make([]service.ImageInput, 0, len(req.Images))
	for _, img := range req.Images {
		images = append(images, service.ImageInput{URL: img.URL, IsMain: img.IsMain})
	}
	return service.AdInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       *req.Price,
		CategoryID:  req.CategoryID,
		Location:    req.Location,
		Condition:   domain.Condition(req.Condition),
		Images:      images,
	}
}

// UpdateAdRequest is a partial ad update; absent fields are left unchanged
type UpdateAdRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=3,max=100"`
	Description *string    `json:"description" validate:"omitempty,min=10,max=2000"`
	Price       *float64   `json:"price" validate:"omitempty,gte=0"`
	CategoryID  *uuid.UUID `json:"categoryId"`
	Location    *string    `json:"location" validate:"omitempty,max=100"`
	Condition   *string    `json:"condition" validate:"omitempty,oneof=NEW USED REFURBISHED"`
	IsActive    *bool      `json:"isActive"`
}

func (req UpdateAdRequest) toUpdate() domain.AdUpdate {
	update := domain.AdUpdate{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Location:    req.Location,
		IsActive:    req.IsActive,
	}
	if req.Condition != nil {
		condition := domain.Condition(*req.Condition)
		update.Condition = &condition
	}
	return update
}

// OptionalUUID records whether a nullable id was present in the payload, so
// that an explicit null can be told apart from an absent field.
type OptionalUUID struct {
	Set   bool
	Value *uuid.UUID
}

func (o *OptionalUUID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

type CreateCategoryRequest struct {
	Name        string     `json:"name" validate:"required,min=2,max=50"`
	Description *string    `json:"description" validate:"omitempty,max=200"`
	Icon        *string    `json:"icon" validate:"omitempty,max=50"`
	ParentID    *uuid.UUID `json:"parentId"`
}

type UpdateCategoryRequest struct {
	Name        *string      `json:"name" validate:"omitempty,min=2,max=50"`
	Description *string      `json:"description" validate:"omitempty,max=200"`
	Icon        *string      `json:"icon" validate:"omitempty,max=50"`
	ParentID    OptionalUUID `json:"parentId"`
	IsActive    *bool        `json:"isActive"`
}

func (req UpdateCategoryRequest) toUpdate() domain.CategoryUpdate {
	return domain.CategoryUpdate{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		ParentID:    req.ParentID.Value,
		ParentSet:   req.ParentID.Set,
		IsActive:    req.IsActive,
	}
}

type SendMessageRequest struct {
	Content    string     `json:"content" validate:"required,min=1,max=1000"`
	ReceiverID uuid.UUID  `json:"receiverId" validate:"required"`
	AdID       *uuid.UUID `json:"adId"`
}

// UpdateUserRequest is an admin edit of a user account
type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=50"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone" validate:"omitempty,max=20"`
	Role     *string `json:"role" validate:"omitempty,oneof=USER ADMIN"`
	IsActive *bool   `json:"isActive"`
}

func (req UpdateUserRequest) toInput() service.UserInput {
	input := service.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		IsActive: req.IsActive,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}
	return input
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}
