package config

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/google"
)

// GoogleOAuthConfig is used to exchange the code delivered by the app's deep link.
func GoogleOAuthConfig(s OAuthSettings) *oauth2.Config {
	return &oauth2.Config{
		RedirectURL:  s.RedirectURL,
		ClientID:     s.GoogleClientID,
		ClientSecret: s.GoogleClientSecret,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// PayPalCredentials performs the client-credentials exchange against PayPal.
func PayPalCredentials(p PayPalSettings) *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		TokenURL:     p.BaseURL() + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
}
