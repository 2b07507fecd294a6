package service

import (
	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
	v "github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

const maxImageKilobytes = 1024

var imageExtensions = []string{"png", "jpg", "jpeg", "gif"}

// userRules builds the create form rules when id is zero and the edit form
// rules otherwise. On edit the password fields may be left blank.
func userRules(id uint) v.Ruleset {
	password := []v.Rule{v.RequiredRule(), v.ConfirmedRule(), v.StrongPasswordRule()}
	confirmation := []v.Rule{v.RequiredRule(), v.SameRule("password")}
	if id != 0 {
		password = append([]v.Rule{v.SometimesRule()}, password...)
		confirmation = append([]v.Rule{v.SometimesRule()}, confirmation...)
	}
	return v.Ruleset{
		{Name: "username", Label: "Username", Rules: []v.Rule{
			v.RequiredRule(), v.MinRule(4), v.MaxRule(100), v.AlphaDashRule(), v.UniqueRule("users", "username", id),
		}},
		{Name: "role", Label: "Role", Rules: []v.Rule{
			v.RequiredRule(), v.NumericRule(), v.ExistsRule("roles", "id"),
		}},
		{Name: "realname", Label: "Name and Surname", Rules: []v.Rule{
			v.RequiredRule(), v.MinRule(5), v.MaxRule(100), v.ValidNameRule(),
		}},
		{Name: "password", Label: "Password", Rules: password},
		{Name: "password_confirmation", Label: "Password confirmation", Rules: confirmation},
		{Name: "email", Label: "E-mail", Rules: []v.Rule{
			v.RequiredRule(), v.MinRule(5), v.MaxRule(100), v.EmailRule(),
		}},
		{Name: "image", Label: "Profile Picture", Rules: []v.Rule{
			v.FileRule(), v.MaxFileSizeRule(maxImageKilobytes), v.MimesRule(imageExtensions...),
		}},
	}
}

func profileRules(passwordHash string) v.Ruleset {
	return v.Ruleset{
		{Name: "current_password", Label: "Current Password", Rules: []v.Rule{
			v.RequiredRule(), v.ValidPasswordRule(passwordHash),
		}},
		{Name: "password", Label: "New Password", Rules: []v.Rule{
			v.RequiredRule(), v.ConfirmedRule(), v.StrongPasswordRule(),
		}},
		{Name: "password_confirmation", Label: "Password Confirmation", Rules: []v.Rule{
			v.RequiredRule(), v.SameRule("password"),
		}},
	}
}

func searchRules() v.Ruleset {
	return v.Ruleset{
		{Name: "query", Label: "Search Query", Rules: []v.Rule{
			v.RequiredRule(), v.MinRule(4), v.ValidQueryRule(),
		}},
	}
}

func roleRules(id uint) v.Ruleset {
	return v.Ruleset{
		{Name: "name", Label: "Name", Rules: []v.Rule{
			v.RequiredRule(), v.MinRule(4), v.MaxRule(40), v.DisplayNameRule(), v.UniqueRule("roles", "name", id),
		}},
		{Name: "description", Label: "Description", Rules: []v.Rule{
			v.RequiredRule(), v.MinRule(5), v.MaxRule(255),
		}},
	}
}

func settingsRules() v.Ruleset {
	return v.Ruleset{
		{Name: settings.KeySiteName, Label: "Site Name", Rules: []v.Rule{v.RequiredRule(), v.MaxRule(100)}},
		{Name: settings.KeySiteSkin, Label: "Backend Skin", Rules: []v.Rule{v.RequiredRule(), v.InRule(settings.Skins()...)}},
		{Name: settings.KeyMailDriver, Label: "Mail Driver", Rules: []v.Rule{v.RequiredRule(), v.InRule(settings.MailDrivers()...)}},
		{Name: settings.KeyMailFromAddress, Label: "Mail From Address", Rules: []v.Rule{v.RequiredRule(), v.EmailRule()}},
		{Name: settings.KeyMailFromName, Label: "Mail From Name", Rules: []v.Rule{v.RequiredRule(), v.MaxRule(100)}},
		{Name: settings.KeyMailHost, Label: "Server Name", Rules: []v.Rule{v.MaxRule(255)}},
		{Name: settings.KeyMailPort, Label: "Server Port", Rules: []v.Rule{v.NumericRule(), v.MinRule(1), v.MaxRule(65535)}},
		{Name: settings.KeyMailEncryption, Label: "Encryption", Rules: []v.Rule{v.InRule(settings.MailEncryptions()...)}},
		{Name: settings.KeyMailUsername, Label: "Server Username", Rules: []v.Rule{v.MaxRule(255)}},
		{Name: settings.KeyMailPassword, Label: "Server Password", Rules: []v.Rule{v.MaxRule(255)}},
	}
}

func loginRules() v.Ruleset {
	return v.Ruleset{
		{Name: "username", Label: "Username", Rules: []v.Rule{v.RequiredRule(), v.MaxRule(100)}},
		{Name: "password", Label: "Password", Rules: []v.Rule{v.RequiredRule()}},
	}
}

func remindRules() v.Ruleset {
	return v.Ruleset{
		{Name: "email", Label: "E-mail", Rules: []v.Rule{v.RequiredRule(), v.EmailRule()}},
	}
}

func resetRules() v.Ruleset {
	return v.Ruleset{
		{Name: "token", Label: "Token", Rules: []v.Rule{v.RequiredRule()}},
		{Name: "email", Label: "E-mail", Rules: []v.Rule{v.RequiredRule(), v.EmailRule()}},
		{Name: "password", Label: "Password", Rules: []v.Rule{v.RequiredRule(), v.ConfirmedRule(), v.StrongPasswordRule()}},
		{Name: "password_confirmation", Label: "Password confirmation", Rules: []v.Rule{v.RequiredRule(), v.SameRule("password")}},
	}
}
