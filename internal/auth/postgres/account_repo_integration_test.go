// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

//go:build integration

package postgres_test

import (
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/natours/natours/internal/auth"
	"github.com/natours/natours/internal/auth/postgres"
)

var _ = Describe("AccountRepository", func() {
	var (
		repo *postgres.AccountRepository
		now  time.Time
	)

	BeforeEach(func() {
		repo = postgres.NewAccountRepository(env.pool)
		now = time.Now().UTC().Truncate(time.Microsecond)
		_, err := repo.DeleteAll(env.ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	newAccount := func(name, email string) *auth.Account {
		acct, err := auth.NewAccount(name, email, "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$a2V5", auth.RoleUser, now)
		Expect(err).NotTo(HaveOccurred())
		return acct
	}

	Describe("Create and lookups", func() {
		It("round-trips every column", func() {
			acct := newAccount("Ann Smith", "ann@example.com")
			Expect(repo.Create(env.ctx, acct)).To(Succeed())

			byEmail, err := repo.FindByEmail(env.ctx, "  ANN@example.com ")
			Expect(err).NotTo(HaveOccurred())
			Expect(byEmail.ID).To(Equal(acct.ID))
			Expect(byEmail.PasswordHash).To(Equal(acct.PasswordHash))
			Expect(byEmail.Photo).To(Equal(auth.DefaultPhoto))
			Expect(byEmail.Active).To(BeTrue())
			Expect(byEmail.CreatedAt).To(BeTemporally("==", acct.CreatedAt))

			byID, err := repo.FindByID(env.ctx, acct.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byID.Email).To(Equal("ann@example.com"))
		})

		It("rejects a duplicate email regardless of case", func() {
			Expect(repo.Create(env.ctx, newAccount("Ann", "ann@example.com"))).To(Succeed())
			err := repo.Create(env.ctx, newAccount("Other Ann", "Ann@Example.com"))
			Expect(err).To(MatchError(auth.ErrEmailTaken))
		})

		It("returns ErrNotFound for unknown ids", func() {
			_, err := repo.FindByID(env.ctx, ulid.Make())
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("hides inactive accounts", func() {
			acct := newAccount("Gone", "gone@example.com")
			acct.Active = false
			Expect(repo.Create(env.ctx, acct)).To(Succeed())

			_, err := repo.FindByEmail(env.ctx, "gone@example.com")
			Expect(err).To(MatchError(auth.ErrNotFound))
			_, err = repo.FindByID(env.ctx, acct.ID)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("Save", func() {
		It("persists lockout bookkeeping", func() {
			acct := newAccount("Ann", "ann@example.com")
			Expect(repo.Create(env.ctx, acct)).To(Succeed())

			locked := now.Add(10 * time.Minute)
			acct.FailedLogins = 4
			acct.LockedUntil = &locked
			Expect(repo.Save(env.ctx, acct, auth.SaveOptions{})).To(Succeed())

			stored, err := repo.FindByID(env.ctx, acct.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.FailedLogins).To(Equal(4))
			Expect(stored.LockedUntil).NotTo(BeNil())
			Expect(*stored.LockedUntil).To(BeTemporally("==", locked))
		})

		It("returns ErrNotFound for an account that was never created", func() {
			err := repo.Save(env.ctx, newAccount("Nobody", "nobody@example.com"), auth.SaveOptions{})
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("FindByResetTokenHash", func() {
		It("only matches unexpired digests", func() {
			acct := newAccount("Ann", "ann@example.com")
			Expect(repo.Create(env.ctx, acct)).To(Succeed())

			acct.SetResetToken("digest-1", now.Add(10*time.Minute))
			Expect(repo.Save(env.ctx, acct, auth.SaveOptions{})).To(Succeed())

			found, err := repo.FindByResetTokenHash(env.ctx, "digest-1", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(acct.ID))

			_, err = repo.FindByResetTokenHash(env.ctx, "digest-1", now.Add(11*time.Minute))
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("seeding", func() {
		It("bulk loads and deletes", func() {
			accts := []*auth.Account{
				newAccount("Ann", "ann@example.com"),
				newAccount("Bob", "bob@example.com"),
				newAccount("Cid", "cid@example.com"),
			}
			Expect(repo.CreateMany(env.ctx, accts)).To(Succeed())

			n, err := repo.DeleteAll(env.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(3)))
		})
	})
})
