package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logica-lang/logica/domain/registry"
	"github.com/logica-lang/logica/infrastructure/errors"
	"github.com/logica-lang/logica/kernel"
)

type fixture struct {
	k       *kernel.Kernel
	m       *Manager
	teacher int
	student int
	outside int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	k := kernel.New()
	teacher, ok := k.CreateSpeaker(registry.RootID, "Teacher")
	require.True(t, ok)
	student, ok := k.CreateSpeaker(registry.RootID, "Student")
	require.True(t, ok)
	outside, ok := k.CreateSpeaker(registry.RootID, "Outside")
	require.True(t, ok)
	return &fixture{
		k:       k,
		m:       New(k, nil),
		teacher: teacher.ID,
		student: student.ID,
		outside: outside.ID,
	}
}

func memberPerms() Permissions {
	return Permissions{Read: true, Write: true, Submit: true, Request: true}
}

func TestCreateWorld(t *testing.T) {
	f := newFixture(t)

	w, err := f.m.CreateWorld(f.teacher, "CS 101")
	require.NoError(t, err)
	assert.Equal(t, 1, w.WorldID)
	assert.Equal(t, StatusOpen, w.Status)
	assert.Equal(t, FullPermissions(), w.Members[f.teacher].Permissions)
	assert.Equal(t, "creator", w.Members[f.teacher].Role)

	// Creation is receipted through the kernel.
	found := false
	for _, e := range f.k.LedgerRead(registry.RootID, 0, 1000) {
		if e.Action == "world:1:create:CS 101" {
			found = true
		}
	}
	assert.True(t, found, "world creation must leave a ledger receipt")
	assert.True(t, f.k.LedgerVerify())
}

func TestCreateWorldUnauthenticated(t *testing.T) {
	f := newFixture(t)

	_, err := f.m.CreateWorld(99, "Ghost World")
	assert.True(t, errors.Is(err, errors.ErrCodeNotAuthenticated))
}

func TestInviteToWorld(t *testing.T) {
	f := newFixture(t)
	w, _ := f.m.CreateWorld(f.teacher, "CS 101")

	require.NoError(t, f.m.InviteToWorld(f.teacher, f.student, w.WorldID, memberPerms()))
	assert.Contains(t, w.Members, f.student)
	assert.Equal(t, "member", w.Members[f.student].Role)

	t.Run("without invite permission", func(t *testing.T) {
		err := f.m.InviteToWorld(f.student, f.outside, w.WorldID, memberPerms())
		assert.True(t, errors.Is(err, errors.ErrCodePermissionDenied))
	})

	t.Run("double invite", func(t *testing.T) {
		err := f.m.InviteToWorld(f.teacher, f.student, w.WorldID, memberPerms())
		assert.True(t, errors.Is(err, errors.ErrCodeAlreadyMember))
	})

	t.Run("non-member inviter", func(t *testing.T) {
		err := f.m.InviteToWorld(f.outside, f.outside, w.WorldID, memberPerms())
		assert.True(t, errors.Is(err, errors.ErrCodeNotMember))
	})
}

func TestJoinAndLeave(t *testing.T) {
	f := newFixture(t)
	w, _ := f.m.CreateWorld(f.teacher, "CS 101")

	require.NoError(t, f.m.JoinWorld(f.student, w.WorldID, memberPerms()))
	require.NoError(t, f.m.LeaveWorld(f.student, w.WorldID))
	assert.NotContains(t, w.Members, f.student)

	t.Run("creator cannot leave", func(t *testing.T) {
		err := f.m.LeaveWorld(f.teacher, w.WorldID)
		assert.True(t, errors.Is(err, errors.ErrCodeNotWorldCreator))
	})

	t.Run("unknown world", func(t *testing.T) {
		err := f.m.JoinWorld(f.student, 42, memberPerms())
		assert.True(t, errors.Is(err, errors.ErrCodeWorldNotFound))
	})
}

func TestArchiveWorld(t *testing.T) {
	f := newFixture(t)
	w, _ := f.m.CreateWorld(f.teacher, "CS 101")
	f.m.InviteToWorld(f.teacher, f.student, w.WorldID, memberPerms())

	t.Run("non-creator cannot archive", func(t *testing.T) {
		err := f.m.ArchiveWorld(f.student, w.WorldID)
		assert.True(t, errors.Is(err, errors.ErrCodeNotWorldCreator))
	})

	require.NoError(t, f.m.ArchiveWorld(f.teacher, w.WorldID))
	assert.Equal(t, StatusArchived, w.Status)

	t.Run("archived world rejects mutations", func(t *testing.T) {
		err := f.m.WorldWrite(f.student, w.WorldID, "late", 1)
		assert.True(t, errors.Is(err, errors.ErrCodeWorldClosed))

		err = f.m.JoinWorld(f.outside, w.WorldID, memberPerms())
		assert.True(t, errors.Is(err, errors.ErrCodeWorldClosed))
	})
}

func TestWorldWriteAndRead(t *testing.T) {
	f := newFixture(t)
	w, _ := f.m.CreateWorld(f.teacher, "CS 101")
	f.m.InviteToWorld(f.teacher, f.student, w.WorldID, memberPerms())

	require.NoError(t, f.m.WorldWrite(f.student, w.WorldID, "essay", "draft one"))

	// The variable lives in the student's partition under the world prefix.
	key := VarKey(w.WorldID, f.student, "essay")
	assert.Equal(t, "draft one", f.k.Read(f.student, f.student, key))

	// Another member with read permission sees it through the world layer.
	v, err := f.m.WorldRead(f.teacher, w.WorldID, f.student, "essay")
	require.NoError(t, err)
	assert.Equal(t, "draft one", v)

	t.Run("write permission enforced", func(t *testing.T) {
		f.m.InviteToWorld(f.teacher, f.outside, w.WorldID, Permissions{Read: true})
		err := f.m.WorldWrite(f.outside, w.WorldID, "graffiti", 1)
		assert.True(t, errors.Is(err, errors.ErrCodePermissionDenied))
	})

	t.Run("non-member cannot write", func(t *testing.T) {
		k2, _ := f.k.CreateSpeaker(registry.RootID, "Stranger")
		err := f.m.WorldWrite(k2.ID, w.WorldID, "x", 1)
		assert.True(t, errors.Is(err, errors.ErrCodeNotMember))
	})
}

func TestWorldWriteNeverTouchesOtherPartitions(t *testing.T) {
	f := newFixture(t)
	w, _ := f.m.CreateWorld(f.teacher, "CS 101")
	f.m.InviteToWorld(f.teacher, f.student, w.WorldID, memberPerms())

	// A cross-partition tamper attempt through the kernel is receipted.
	key := VarKey(w.WorldID, f.student, "essay")
	assert.False(t, f.k.WriteTo(f.teacher, f.student, key, "TAMPERED"))

	violations := 0
	for _, e := range f.k.LedgerRead(registry.RootID, 0, 1000) {
		if e.Operation == "write_violation" {
			violations++
		}
	}
	assert.Equal(t, 1, violations)
	assert.Nil(t, f.k.Read(f.teacher, f.student, key))
}

func TestWorldRequest(t *testing.T) {
	f := newFixture(t)
	w, _ := f.m.CreateWorld(f.teacher, "CS 101")
	f.m.InviteToWorld(f.teacher, f.student, w.WorldID, memberPerms())

	r, err := f.m.WorldRequest(f.student, f.teacher, w.WorldID, "dispute:grade", "reason")
	require.NoError(t, err)
	assert.Equal(t, "world:1:dispute:grade", r.Action)

	pending := f.k.PendingRequests(f.teacher)
	require.Len(t, pending, 1)

	t.Run("target must be a member", func(t *testing.T) {
		_, err := f.m.WorldRequest(f.student, f.outside, w.WorldID, "x", nil)
		assert.True(t, errors.Is(err, errors.ErrCodeNotMember))
	})

	t.Run("request permission enforced", func(t *testing.T) {
		f.m.InviteToWorld(f.teacher, f.outside, w.WorldID, Permissions{Read: true})
		_, err := f.m.WorldRequest(f.outside, f.teacher, w.WorldID, "x", nil)
		assert.True(t, errors.Is(err, errors.ErrCodePermissionDenied))
	})
}

func TestAudit(t *testing.T) {
	f := newFixture(t)
	w, _ := f.m.CreateWorld(f.teacher, "CS 101")
	f.m.InviteToWorld(f.teacher, f.student, w.WorldID, memberPerms())
	f.m.WorldWrite(f.student, w.WorldID, "essay", "v1")

	// Noise from a non-member outside the world.
	f.k.Write(f.outside, "private", 1)

	entries, err := f.m.Audit(f.teacher, w.WorldID, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		assert.NotEqual(t, "Outside", e.Speaker,
			"audit must exclude entries from non-members outside the world")
	}

	var sawCreate, sawWrite bool
	for _, e := range entries {
		if e.Action == "world:1:create:CS 101" {
			sawCreate = true
		}
		if e.Action == "write:"+VarKey(w.WorldID, f.student, "essay") {
			sawWrite = true
			assert.Equal(t, "Student", e.Speaker)
		}
	}
	assert.True(t, sawCreate)
	assert.True(t, sawWrite)

	t.Run("requires membership", func(t *testing.T) {
		_, err := f.m.Audit(f.outside, w.WorldID, nil, nil)
		assert.True(t, errors.Is(err, errors.ErrCodeNotMember))
	})
}

func TestMentionsWorld(t *testing.T) {
	tests := []struct {
		action string
		id     int
		want   bool
	}{
		{"world:3:create:X", 3, true},
		{"world:30:create:X", 3, true}, // substring match: world 30 carries the world:3 prefix
		{"write:3.2.essay", 3, true},
		{"read:3.2.essay", 3, true},
		{"write:2.3.essay", 3, false},
		{"speak:\"hi\"", 3, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, mentionsWorld(tt.action, tt.id), tt.action)
	}
}

func TestListWorlds(t *testing.T) {
	f := newFixture(t)
	w1, _ := f.m.CreateWorld(f.teacher, "CS 101")
	w2, _ := f.m.CreateWorld(f.teacher, "CS 102")
	f.m.InviteToWorld(f.teacher, f.student, w2.WorldID, memberPerms())

	teacherWorlds := f.m.ListWorlds(f.teacher)
	require.Len(t, teacherWorlds, 2)
	assert.Equal(t, w1.WorldID, teacherWorlds[0].WorldID)

	studentWorlds := f.m.ListWorlds(f.student)
	require.Len(t, studentWorlds, 1)
	assert.Equal(t, w2.WorldID, studentWorlds[0].WorldID)

	assert.Empty(t, f.m.ListWorlds(f.outside))
}
