package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zenGate-Global/inspection-scheduler/platform/go/auth/devtoken"
)

func main() {
	projectID := flag.String("project-id", "", "Firebase project ID (used for iss/aud)")
	userID := flag.String("user-id", "", "user_id/sub/uid claim")
	accountID := flag.Int64("account-id", 0, "account_id custom claim (tenant account)")
	email := flag.String("email", "", "email claim")
	name := flag.String("name", "", "display name")
	emailVerified := flag.Bool("email-verified", true, "email_verified claim")
	isAdmin := flag.Bool("admin", false, "set isAdmin=true for admin role")
	signInProvider := flag.String("sign-in-provider", "password", "firebase.sign_in_provider claim")
	expiresIn := flag.Duration("expires-in", time.Hour, "token lifetime (duration, e.g. 30m, 2h)")
	audience := flag.String("audience", "", "override aud (defaults to project-id)")
	issuer := flag.String("issuer", "", "override iss (defaults to https://securetoken.google.com/<project-id>)")

	flag.Parse()

	params := devtoken.Params{
		ProjectID:      strings.TrimSpace(*projectID),
		UserID:         strings.TrimSpace(*userID),
		AccountID:      *accountID,
		Email:          strings.TrimSpace(*email),
		Name:           strings.TrimSpace(*name),
		EmailVerified:  *emailVerified,
		IsAdmin:        *isAdmin,
		SignInProvider: strings.TrimSpace(*signInProvider),
		ExpiresIn:      *expiresIn,
		Audience:       strings.TrimSpace(*audience),
		Issuer:         strings.TrimSpace(*issuer),
	}

	token, err := devtoken.Generate(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
