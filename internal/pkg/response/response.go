package response

import (
	"github.com/gofiber/fiber/v2"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK writes 200 {success:true, data}.
func OK(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{Success: true, Data: data})
}

// Created writes 201 {success:true, data}.
func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{Success: true, Data: data})
}

// Error writes {success:false, error} with the given status.
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Envelope{Success: false, Error: message})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func Unauthorized(c *fiber.Ctx) error {
	return Error(c, fiber.StatusUnauthorized, "Niet ingelogd")
}

func Forbidden(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Geen toegang"
	}
	return Error(c, fiber.StatusForbidden, message)
}

func NotFound(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Niet gevonden"
	}
	return Error(c, fiber.StatusNotFound, message)
}

func Internal(c *fiber.Ctx) error {
	return Error(c, fiber.StatusInternalServerError, "Er is iets misgegaan, probeer het later opnieuw")
}
