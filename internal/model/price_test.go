package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    Price
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "12", want: 1200},
		{in: "12.5", want: 1250},
		{in: "12.05", want: 1205},
		{in: " 7.99 ", want: 799},
		{in: "-3.10", want: -310},
		{in: "99999999.99", want: MaxPrice},
		{in: "100000000", wantErr: true},
		{in: "1.234", wantErr: true},
		{in: "1.", wantErr: true},
		{in: ".5", wantErr: true},
		{in: "1e3", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPrice)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriceJSON(t *testing.T) {
	var body struct {
		Price Price `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price": 19.9}`), &body))
	assert.Equal(t, Price(1990), body.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"price": "5.00"}`), &body))
	assert.Equal(t, Price(500), body.Price)

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": "5.00"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"price": "1.999"}`), &body))
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategorySports.Valid())
	assert.False(t, Category("music").Valid())
	assert.False(t, Category("").Valid())
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("ADMIN"))
	assert.Equal(t, RoleUser, ParseRole("user"))
	assert.Equal(t, RoleUser, ParseRole("superuser"))
}
