// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

//go:build integration

package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/natours/natours/internal/auth"
)

type response struct {
	status int
	body   map[string]any
	cookie *http.Cookie
}

func call(method, path string, body any, token string) response {
	var buf bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}
	req, err := http.NewRequestWithContext(env.ctx, method, env.server.URL+path, &buf)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.server.Client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	out := response{status: resp.StatusCode}
	Expect(json.NewDecoder(resp.Body).Decode(&out.body)).To(Succeed())
	for _, c := range resp.Cookies() {
		if c.Name == "auth_token" {
			out.cookie = c
		}
	}
	return out
}

func signUp(name, email, password string) response {
	return call(http.MethodPost, "/api/v1/users/signup", map[string]string{
		"name": name, "email": email, "password": password, "confirmPassword": password,
	}, "")
}

func login(email, password string) response {
	return call(http.MethodPost, "/api/v1/users/login", map[string]string{
		"email": email, "password": password,
	}, "")
}

func userField(r response, key string) any {
	data, _ := r.body["data"].(map[string]any)
	user, _ := data["user"].(map[string]any)
	return user[key]
}

var _ = Describe("Account API against PostgreSQL", func() {
	BeforeEach(func() {
		env.svc.Wait()
		_, err := env.repo.DeleteAll(env.ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	It("signs up, logs in and reads the current account", func() {
		created := signUp("Ann Smith", "Ann@Example.com", "pass1234")
		Expect(created.status).To(Equal(http.StatusCreated))
		Expect(created.cookie).NotTo(BeNil())
		Expect(userField(created, "email")).To(Equal("ann@example.com"))
		Expect(userField(created, "password")).To(BeNil())

		env.svc.Wait()
		Expect(env.outbox.count("ann@example.com")).To(Equal(1), "welcome mail")

		session := login("ann@example.com", "pass1234")
		Expect(session.status).To(Equal(http.StatusOK))
		token, _ := session.body["token"].(string)
		Expect(token).NotTo(BeEmpty())

		me := call(http.MethodGet, "/api/v1/users/me", nil, token)
		Expect(me.status).To(Equal(http.StatusOK))
		Expect(userField(me, "name")).To(Equal("Ann Smith"))
	})

	It("rejects a second account with the same email", func() {
		Expect(signUp("Ann", "ann@example.com", "pass1234").status).To(Equal(http.StatusCreated))
		dup := signUp("Ann Again", "ANN@example.com", "pass1234")
		Expect(dup.status).To(Equal(http.StatusBadRequest))
	})

	It("locks the account after repeated failures and unlocks it with a reset", func() {
		Expect(signUp("Ben", "ben@example.com", "pass1234").status).To(Equal(http.StatusCreated))

		for range auth.DefaultLockoutThreshold {
			Expect(login("ben@example.com", "wrong-password").status).To(Equal(http.StatusUnauthorized))
		}
		locked := login("ben@example.com", "pass1234")
		Expect(locked.status).To(Equal(http.StatusUnauthorized))
		Expect(locked.body["message"]).To(ContainSubstring("try again in"))

		forgot := call(http.MethodPost, "/api/v1/users/forgotPassword", map[string]string{"email": "ben@example.com"}, "")
		Expect(forgot.status).To(Equal(http.StatusOK))
		raw := env.outbox.lastResetToken("ben@example.com")
		Expect(raw).To(HaveLen(auth.ResetTokenBytes * 2))

		reset := call(http.MethodPatch, "/api/v1/users/resetPassword/"+raw,
			map[string]string{"password": "newpass99", "confirmPassword": "newpass99"}, "")
		Expect(reset.status).To(Equal(http.StatusOK))

		Expect(login("ben@example.com", "newpass99").status).To(Equal(http.StatusOK))

		again := call(http.MethodPatch, "/api/v1/users/resetPassword/"+raw,
			map[string]string{"password": "another99", "confirmPassword": "another99"}, "")
		Expect(again.status).To(Equal(http.StatusBadRequest), "reset tokens are single use")
	})

	It("invalidates older tokens when the password changes", func() {
		created := signUp("Cleo", "cleo@example.com", "pass1234")
		oldToken, _ := created.body["token"].(string)

		// Token timestamps have second resolution and the change is stamped
		// one second early.
		time.Sleep(2 * time.Second)
		updated := call(http.MethodPatch, "/api/v1/users/updateMyPassword", map[string]string{
			"password": "pass1234", "newPassword": "newpass99", "confirmNewPassword": "newpass99",
		}, oldToken)
		Expect(updated.status).To(Equal(http.StatusOK))
		newToken, _ := updated.body["token"].(string)

		Expect(call(http.MethodGet, "/api/v1/users/me", nil, oldToken).status).To(Equal(http.StatusUnauthorized))
		Expect(call(http.MethodGet, "/api/v1/users/me", nil, newToken).status).To(Equal(http.StatusOK))
	})

	It("restricts account lookup by role", func() {
		guide := signUp("Gus", "gus@example.com", "pass1234")
		guideToken, _ := guide.body["token"].(string)
		guideID, _ := userField(guide, "id").(string)

		Expect(call(http.MethodGet, "/api/v1/users/"+guideID, nil, guideToken).status).To(Equal(http.StatusForbidden))

		admin, err := auth.NewAccount("Ada", "ada@example.com", mustHash("pass1234"), auth.RoleAdmin, nowUTC())
		Expect(err).NotTo(HaveOccurred())
		Expect(env.repo.Create(env.ctx, admin)).To(Succeed())
		adminToken, _ := login("ada@example.com", "pass1234").body["token"].(string)

		found := call(http.MethodGet, "/api/v1/users/"+guideID, nil, adminToken)
		Expect(found.status).To(Equal(http.StatusOK))
		Expect(userField(found, "email")).To(Equal("gus@example.com"))
	})
})
