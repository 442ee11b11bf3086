package gigamap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type account struct {
	email string
}

func cloneAccount(a account) account { return account{email: a.email} }

func emailIndexer() UniqueIndexer[account] {
	return emailKey{}
}

type emailKey struct{}

func (emailKey) Name() string         { return "email" }
func (emailKey) Key(a account) string { return a.email }

func TestAddAssignsSequentialIDs(t *testing.T) {
	m := New[account]("accounts", nil, nil)

	id1, err := m.Add(account{email: "a@example.com"})
	require.NoError(t, err)
	require.Equal(t, uint64(1), id1)

	id2, err := m.Add(account{email: "b@example.com"})
	require.NoError(t, err)
	require.Equal(t, uint64(2), id2)
}

func TestUniqueConstraintOnAddAndUpdate(t *testing.T) {
	m := New[account]("accounts", nil, nil)
	m.AddConstraint(NewUniqueConstraint[account](emailIndexer()))

	id1, err := m.Add(account{email: "a"})
	require.NoError(t, err)

	_, err = m.Add(account{email: "a"})
	require.Error(t, err)

	err = m.Update(id1, cloneAccount, func(a *account) error {
		a.email = "b"
		return nil
	})
	require.NoError(t, err)

	_, err = m.Add(account{email: "a"})
	require.NoError(t, err)
}

func TestTransactionalUpdateRollback(t *testing.T) {
	m := New[account]("accounts", nil, nil)
	m.AddConstraint(NewUniqueConstraint[account](emailIndexer()))

	id1, err := m.Add(account{email: "a"})
	require.NoError(t, err)
	id2, err := m.Add(account{email: "b"})
	require.NoError(t, err)

	err = m.Update(id2, cloneAccount, func(a *account) error {
		a.email = "a"
		return nil
	})
	require.Error(t, err)

	e1, _ := m.Get(id1)
	e2, _ := m.Get(id2)
	require.Equal(t, "a", e1.email)
	require.Equal(t, "b", e2.email)

	mutatorErr := errBoom{}
	err = m.Update(id1, cloneAccount, func(a *account) error {
		a.email = "c"
		return mutatorErr
	})
	require.Error(t, err)

	e1again, _ := m.Get(id1)
	require.Equal(t, "a", e1again.email)
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func TestRemoveByIDFreesSlot(t *testing.T) {
	m := New[account]("accounts", nil, nil)
	id, err := m.Add(account{email: "a"})
	require.NoError(t, err)

	_, ok := m.RemoveByID(id)
	require.True(t, ok)

	_, found := m.Get(id)
	require.False(t, found)
	require.Equal(t, 0, m.Len())
}

func TestIndexCallbacksInvoked(t *testing.T) {
	var indexed, unindexed []uint64
	m := New[account]("accounts",
		func(id uint64, _ account) { indexed = append(indexed, id) },
		func(id uint64, _ account) { unindexed = append(unindexed, id) },
	)

	id, err := m.Add(account{email: "a"})
	require.NoError(t, err)
	require.Equal(t, []uint64{id}, indexed)

	_, _ = m.RemoveByID(id)
	require.Equal(t, []uint64{id}, unindexed)
}

func TestQueryWhereAndLimit(t *testing.T) {
	m := New[account]("accounts", nil, nil)
	for _, email := range []string{"a", "b", "c", "d"} {
		_, err := m.Add(account{email: email})
		require.NoError(t, err)
	}

	results := m.Where(func(_ uint64, a account) bool {
		return a.email != "c"
	}).Limit(2).Execute()

	require.Len(t, results, 2)
	require.Equal(t, "a", results[0].Entity.email)
	require.Equal(t, "b", results[1].Entity.email)
}

func TestQueryCount(t *testing.T) {
	m := New[account]("accounts", nil, nil)
	for i := 0; i < 5; i++ {
		_, err := m.Add(account{email: "x"})
		require.NoError(t, err)
	}
	require.Equal(t, 5, m.Where(nil).Count())
}

func TestSetRequiresExistingID(t *testing.T) {
	m := New[account]("accounts", nil, nil)
	err := m.Set(999, account{email: "a"})
	require.Error(t, err)
}

func TestReplaceForbidsIdenticalEntity(t *testing.T) {
	m := New[account]("accounts", nil, nil)
	a := account{email: "a"}
	_, err := m.Add(a)
	require.NoError(t, err)

	err = m.Replace(a, a, func(x, y account) bool { return x == y })
	require.Error(t, err)
}
