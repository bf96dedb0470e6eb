// Package authsdk is the Go client for the LumiLearn authentication
// service. It covers the OAuth2/PKCE authorization flows, the token
// grants, MFA and passkey ceremonies, and account management, plus
// client-side session plumbing: an encrypted on-disk token store, an SSO
// flow manager, and a session monitor that keeps tokens fresh and
// surfaces expiry.
//
// Typical browser-less usage:
//
//	client := authsdk.NewSDKClient("https://auth.lumilearn.example")
//	session, err := client.AuthorizeAndExchange(ctx, clientID, "", redirectURI, email, password, nil)
//	if err != nil {
//		var mfa *authsdk.MFARequiredError
//		if errors.As(err, &mfa) {
//			session, err = client.AuthorizeAndExchangeWithMFA(ctx, clientID, "", redirectURI, *mfa, "totp", code, nil)
//		}
//	}
//	profile, err := session.GetProfile(ctx)
//
// Browser-style SSO uses SSOManager: Authorize() returns the URL to send
// the user to, HandleCallback() validates state and redeems the code.
package authsdk
