/*
Package authsdk is the client side of cognify authentication.

# Overview

Two types do the work:

  - SDKClient: a thin HTTP client for the auth endpoints (signup, login,
    refresh, logout, me) plus health and JWKS lookups.
  - SessionManager: owns the bearer credential, decodes it into an
    Identity, and renews it through the refresh endpoint when it is
    missing or expired.

	client := authsdk.NewSDKClient("https://cognify.example.com")
	sessions := authsdk.New(client, authsdk.WithStore(store))
	sessions.Init(ctx)

	if err := sessions.Login(ctx, "ada", "secret"); err != nil {
		var ae *authsdk.AuthActionError
		if errors.As(err, &ae) {
			fmt.Println(ae.Message) // "Invalid credentials"
		}
	}

# Renewal

Renewal is reactive. Credential never performs I/O; EnsureCredential
renews only when the held credential is absent or expired. Any number of
concurrent EnsureCredential calls share one call to the refresh endpoint
and all observe its outcome. The renewal runs detached from the caller's
context, so a caller that gives up does not cancel it for the others.

A failed renewal is not an error: the session becomes unauthenticated and
EnsureCredential returns "". The next call starts a fresh attempt.

# State

State returns a snapshot; Subscribe delivers one on every transition.
Status moves from StatusUninitialized through StatusInitializing to either
StatusAuthenticated or StatusUnauthenticated. State.Initialized separates
"not known yet" from "logged out".

# Persistence

WithStore mirrors the credential into a credstore.Store so Init can skip
the refresh round trip after a restart. NewPersistentJar does the same for
the refresh cookie. Unreadable or corrupt storage counts as empty.

# Thread Safety

SDKClient and SessionManager are safe for concurrent use.
*/
package authsdk
