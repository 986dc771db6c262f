package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryBuildPlain(t *testing.T) {
	sql, args := NewQuery("projects", "id", "name").Build()
	assert.Equal(t, "SELECT id, name FROM projects", sql)
	assert.Empty(t, args)
}

func TestQueryBuildWithWhereAndJoin(t *testing.T) {
	q := NewQuery("projects", "projects.id").
		Join("JOIN clients ON clients.id = projects.client_id").
		Where(Cond("projects.archived = ?", false)).
		Where(Cond("clients.id IN (?, ?)", "c1", "c2"))

	sql, args := q.Build()

	assert.Equal(t,
		"SELECT projects.id FROM projects JOIN clients ON clients.id = projects.client_id "+
			"WHERE (projects.archived = $1) AND (clients.id IN ($2, $3))",
		sql)
	assert.Equal(t, []interface{}{false, "c1", "c2"}, args)
}

func TestQueryJoinDeduplicates(t *testing.T) {
	q := NewQuery("tasks")
	q.Join("JOIN projects ON projects.id = tasks.project_id")
	q.Join("JOIN projects ON projects.id = tasks.project_id")

	sql, _ := q.Build()
	assert.Equal(t, "SELECT * FROM tasks JOIN projects ON projects.id = tasks.project_id", sql)
}

func TestOrConditionsEmptyIsAlwaysFalse(t *testing.T) {
	var acc OrConditions
	assert.True(t, acc.Empty())
	assert.Equal(t, "1 = 0", acc.Condition().SQL)
}

func TestOrConditionsFold(t *testing.T) {
	var acc OrConditions
	acc.Add(Cond("owner_id = ?", "u1"))
	assert.Equal(t, "owner_id = ?", acc.Condition().SQL)

	acc.Add(Cond("client_id IN (?)", "c1"))
	cond := acc.Condition()
	assert.Equal(t, "(owner_id = ?) OR (client_id IN (?))", cond.SQL)
	assert.Equal(t, []interface{}{"u1", "c1"}, cond.Args)
}

func TestAlwaysFalseQueryReturnsNoRows(t *testing.T) {
	sql, args := NewQuery("projects").Where(AlwaysFalse()).Build()
	assert.Equal(t, "SELECT * FROM projects WHERE (1 = 0)", sql)
	assert.Empty(t, args)
}
