package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/eventhub/internal/app/models/dto"
	"github.com/yigit/eventhub/internal/app/services"
	"github.com/yigit/eventhub/internal/middleware"
)

// UserController handles the administrative user operations
type UserController struct {
	userService services.UserService
}

// NewUserController creates a new user controller
func NewUserController(userService services.UserService) *UserController {
	return &UserController{userService: userService}
}

// CreateUser provisions an account in the admin's institution
// @Summary Create user
// @Description Creates a user and its credential with a temporary password. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateUserRequest true "User details"
// @Success 201 {object} dto.APIResponse{data=dto.UserResponse} "User created"
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} dto.ErrorResponse "Caller is not an admin"
// @Failure 409 {object} dto.ErrorResponse "Email already in use"
// @Router /admin/users [post]
func (c *UserController) CreateUser(ctx *gin.Context) {
	var req dto.CreateUserRequest
	if err := middleware.BindJSON(ctx, &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	user, err := c.userService.CreateUser(ctx.Request.Context(), middleware.CallerFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.NewUserResponse(user)))
}

// DeleteUser removes an account of the admin's institution
// @Summary Delete user
// @Description Deletes a user of the caller's institution. Admins cannot delete themselves.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "User deleted"
// @Failure 400 {object} dto.ErrorResponse "Self deletion"
// @Failure 403 {object} dto.ErrorResponse "Caller is not an admin or user belongs to another institution"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /admin/users/{id} [delete]
func (c *UserController) DeleteUser(ctx *gin.Context) {
	id, err := middleware.PathID(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.userService.DeleteUser(ctx.Request.Context(), middleware.CallerFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "User deleted"}))
}

// GetUser returns a user of the caller's institution
func (c *UserController) GetUser(ctx *gin.Context) {
	id, err := middleware.PathID(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	user, err := c.userService.GetUser(ctx.Request.Context(), middleware.CallerFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUserResponse(user)))
}
