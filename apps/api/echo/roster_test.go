package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coffeeduty/core/roster"
)

func TestCreatePerson(t *testing.T) {
	app := setup(t)
	token := getToken(t, app)
	app.createPerson(t, "Bojan", "Kranjc", "bojan@example.com", true)

	tests := []httpTest{
		{
			name:     "empty",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"first_name":"this field is required","last_name":"this field is required"}`),
		},
		{
			name:     "bad fields",
			body:     []byte(`{"first_name":"R2D2","last_name":"Novak","email":"not-an-email"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"first_name":"only letters, spaces, apostrophes and hyphens are allowed","email":"enter a valid email address"}`),
		},
		{
			name:     "duplicate email",
			body:     []byte(`{"first_name":"Bojana","last_name":"Kranjc","email":" BOJAN@example.com "}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"a person with this email already exists"}`),
		},
		{
			name:     "unknown coffee type",
			body:     []byte(`{"first_name":"Ana","last_name":"Novak","default_coffee_type_id":"8f8a2d1c-2b7e-4a4f-9a57-8e6bdfbd0a11"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"default_coffee_type_id":"coffee type not found"}`),
		},
		{
			name:     "valid",
			body:     []byte(`{"first_name":" Ana ","last_name":"Novak","email":"Ana@Example.com"}`),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/people", token, tt.body)
			app.do(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}

	req, rec := newRequest(http.MethodGet, "/v1/people?q=ana@")
	app.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	var people []roster.Person
	unmarshall(t, rec, &people)
	require.Len(t, people, 1)
	assert.Equal(t, "Ana", people[0].FirstName)
	assert.Equal(t, "ana@example.com", people[0].Email)
	assert.True(t, people[0].IsPresent)
	assert.True(t, people[0].Active)
}

func TestQueryPeople(t *testing.T) {
	app := setup(t)
	ana := app.createPerson(t, "Ana", "Novak", "ana@example.com", true)
	bojan := app.createPerson(t, "Bojan", "Kranjc", "", false)
	cene := app.createPerson(t, "Cene", "Zupan", "", true)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"default ordering", "", []string{bojan.ID, ana.ID, cene.ID}},
		{"ordering", "?ordering=-first_name", []string{cene.ID, bojan.ID, ana.ID}},
		{"unknown ordering field ignored", "?ordering=password", []string{bojan.ID, ana.ID, cene.ID}},
		{"present only", "?is_present=true", []string{ana.ID, cene.ID}},
		{"absent only", "?is_present=false", []string{bojan.ID}},
		{"search", "?q=ZUP", []string{cene.ID}},
		{"no match", "?q=nobody", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, "/v1/people"+tt.query)
			app.do(req, rec)
			require.Equal(t, http.StatusOK, rec.Code)

			var people []roster.Person
			unmarshall(t, rec, &people)
			ids := make([]string, 0, len(people))
			for _, p := range people {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	req, rec := newRequest(http.MethodGet, "/v1/people?is_present=maybe")
	app.do(req, rec)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"is_present":"must be a boolean"}`)}, rec)
}

func TestUpdatePerson(t *testing.T) {
	app := setup(t)
	token := getToken(t, app)
	ana := app.createPerson(t, "Ana", "Novak", "ana@example.com", true)
	app.createPerson(t, "Bojan", "Kranjc", "bojan@example.com", true)

	req, rec := newAuthRequest(http.MethodPut, "/v1/people/"+ana.ID, token, []byte(`{}`))
	app.do(req, rec)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"first_name":"nothing to update"}`)}, rec)

	req, rec = newAuthRequest(http.MethodPut, "/v1/people/"+ana.ID, token, []byte(`{"email":"bojan@example.com"}`))
	app.do(req, rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req, rec = newAuthRequest(http.MethodPut, "/v1/people/"+ana.ID, token, []byte(`{"last_name":"Horvat","clear_email":true}`))
	app.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p roster.Person
	unmarshall(t, rec, &p)
	assert.Equal(t, "Ana", p.FirstName)
	assert.Equal(t, "Horvat", p.LastName)
	assert.Empty(t, p.Email)
}

func TestSetPresence(t *testing.T) {
	app := setup(t)
	ana := app.createPerson(t, "Ana", "Novak", "", true)

	// public: people mark themselves
	req, rec := newRequest(http.MethodPost, "/v1/people/"+ana.ID+"/presence", []byte(`{"is_present":false}`))
	app.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p roster.Person
	unmarshall(t, rec, &p)
	assert.False(t, p.IsPresent)

	req, rec = newRequest(http.MethodPost, "/v1/people/"+ana.ID+"/presence", []byte(`{}`))
	app.do(req, rec)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"is_present":"this field is required"}`)}, rec)
}

func TestDestroyPerson(t *testing.T) {
	app := setup(t)
	token := getToken(t, app)
	ana := app.createPerson(t, "Ana", "Novak", "", true)
	bojan := app.createPerson(t, "Bojan", "Kranjc", "", true)

	// ana gets a history, so she can only be deactivated
	app.createPerson(t, "Cene", "Zupan", "", false)
	req, rec := newRequest(http.MethodPost, "/v1/people/"+bojan.ID+"/presence", []byte(`{"is_present":false}`))
	app.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	req, rec = newRequest(http.MethodPost, "/v1/draws/manual", []byte(`{}`))
	app.do(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/people/"+ana.ID+"?hard=true", token)
	app.do(req, rec)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marshallObj(t, httpErr{Error: roster.ErrHasHistory.Error()}),
	}, rec)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/people/"+ana.ID, token)
	app.do(req, rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/people/"+bojan.ID+"?hard=true", token)
	app.do(req, rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newRequest(http.MethodGet, "/v1/people/"+bojan.ID)
	app.do(req, rec)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req, rec = newRequest(http.MethodGet, "/v1/people?include_inactive=true")
	app.do(req, rec)
	var people []roster.Person
	unmarshall(t, rec, &people)
	require.Len(t, people, 2) // ana (inactive) and cene
	assert.Equal(t, ana.ID, people[0].ID)
	assert.False(t, people[0].Active)
}

func TestCoffeeTypes(t *testing.T) {
	app := setup(t)
	token := getToken(t, app)

	req, rec := newAuthRequest(http.MethodPost, "/v1/coffee-types", token, []byte(`{"icon":"☕"}`))
	app.do(req, rec)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"name":"this field is required"}`)}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/coffee-types", token, []byte(`{"name":" Espresso ","icon":"☕"}`))
	app.do(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ct roster.CoffeeType
	unmarshall(t, rec, &ct)
	assert.Equal(t, "Espresso", ct.Name)
	assert.True(t, ct.Active)

	req, rec = newAuthRequest(http.MethodPut, "/v1/coffee-types/"+ct.ID, token, []byte(`{"name":"Doppio"}`))
	app.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshall(t, rec, &ct)
	assert.Equal(t, "Doppio", ct.Name)
	assert.Equal(t, "☕", ct.Icon)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/coffee-types/"+ct.ID, token)
	app.do(req, rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var cts []roster.CoffeeType
	req, rec = newRequest(http.MethodGet, "/v1/coffee-types")
	app.do(req, rec)
	unmarshall(t, rec, &cts)
	assert.Empty(t, cts)

	req, rec = newRequest(http.MethodGet, "/v1/coffee-types?include_inactive=true")
	app.do(req, rec)
	unmarshall(t, rec, &cts)
	require.Len(t, cts, 1)
	assert.False(t, cts[0].Active)
}
