package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/flash"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/ratelimit"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/session"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/usercontext"
)

// Login failures never tell which part was wrong.
const msgLoginFailed = "E-mailadres of wachtwoord onjuist"

type AuthController struct {
	users   repository.UserRepository
	captcha *hcaptcha.Verifier
	siteKey string
}

func NewAuthController(users repository.UserRepository, captcha *hcaptcha.Verifier, siteKey string) *AuthController {
	return &AuthController{users: users, captcha: captcha, siteKey: siteKey}
}

func homeFor(role string) string {
	if role == models.ROLE_ADMIN || role == models.ROLE_SUPER_ADMIN {
		return "/admin"
	}
	return "/portal"
}

func (ac *AuthController) HandleLoginPage(c *fiber.Ctx) error {
	if usercontext.IsLoggedIn(c) {
		return c.Redirect(homeFor(usercontext.GetUserContext(c).Role), fiber.StatusSeeOther)
	}
	return renderPage(c, "auth/login", "Inloggen", nil)
}

func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	password := c.FormValue("password")
	if email == "" || password == "" {
		return flash.Error(c, "/login", msgLoginFailed)
	}

	user, err := ac.users.GetByEmail(email)
	if err != nil || !user.CheckPassword(password) {
		log.Infow("[Auth] login failed", "email", email, "ip", ratelimit.ClientIP(c))
		return flash.Error(c, "/login", msgLoginFailed)
	}
	if !user.IsActive() {
		return flash.Error(c, "/login", "Dit account is niet actief")
	}

	if err := session.Login(c, user.ID, user.Role, user.Name); err != nil {
		log.Errorf("[Auth] session for user %d failed: %v", user.ID, err)
		return flash.Error(c, "/login", "Inloggen is mislukt, probeer het opnieuw")
	}
	if err := ac.users.TouchLastLogin(user.ID, time.Now()); err != nil {
		log.Warnf("[Auth] last login for user %d not stored: %v", user.ID, err)
	}
	return flash.Success(c, homeFor(user.Role), "Welkom terug, "+user.Name)
}

func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if err := session.Logout(c); err != nil {
		log.Warnf("[Auth] logout failed: %v", err)
	}
	return flash.Success(c, "/login", "Je bent uitgelogd")
}

func (ac *AuthController) HandleRegisterPage(c *fiber.Ctx) error {
	if usercontext.IsLoggedIn(c) {
		return c.Redirect("/portal", fiber.StatusSeeOther)
	}
	return renderPage(c, "auth/register", "Account aanmaken", fiber.Map{
		"CaptchaSiteKey": ac.siteKey,
	})
}

// HandleRegister creates a customer account. Registering with an email that
// already exists fails with the same message as any other problem.
func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	if ac.captcha.Enabled() {
		ok, err := ac.captcha.Verify(c.UserContext(), c.FormValue("h-captcha-response"), ratelimit.ClientIP(c))
		if err != nil || !ok {
			return flash.Error(c, "/register", "Captcha controle mislukt, probeer het opnieuw")
		}
	}

	if c.FormValue("password") != c.FormValue("password_confirm") {
		return flash.Error(c, "/register", "Wachtwoorden komen niet overeen")
	}
	user, err := models.NewUser(c.FormValue("name"), c.FormValue("email"), c.FormValue("password"), models.ROLE_CUSTOMER)
	if err != nil {
		return flash.Error(c, "/register", "Controleer je naam, e-mailadres en wachtwoord (minimaal 6 tekens)")
	}
	user.Company = strings.TrimSpace(c.FormValue("company"))

	if _, err := ac.users.GetByEmail(user.Email); err == nil {
		return flash.Error(c, "/register", "Registreren is mislukt")
	}
	if err := ac.users.Create(user); err != nil {
		log.Errorf("[Auth] register %s failed: %v", user.Email, err)
		return flash.Error(c, "/register", "Registreren is mislukt")
	}
	return flash.Success(c, "/login", "Je account is aangemaakt, je kunt nu inloggen")
}
