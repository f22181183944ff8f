// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package column

import (
	"reflect"
	"testing"
)

func TestIsNumeric(t *testing.T) {

	tests := []struct {
		value string
		want  bool
	}{
		{"0", true},
		{"42", true},
		{"-7", true},
		{"+7", true},
		{"3.14", true},
		{"-3.14", true},
		{"1e5", true},
		{"1E5", true},
		{"1.5E-3", true},
		{"+2.E+10", true},
		{"12.3E10", true},
		{"E10", false},
		{"1.5E", false},
		{"default", false},
		{"", false},
		{"1.2.3", false},
		{"node0", false},
		{"0x10", false},
	}

	for _, tt := range tests {
		if got := IsNumeric(tt.value); got != tt.want {
			t.Errorf("IsNumeric(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestNormalizeValue(t *testing.T) {

	tests := []struct {
		name string
		cell Cell
		want string
	}{
		{"plain", Cell{Name: "numbackends", Value: "12"}, "12"},
		{"null default", Cell{Name: "numbackends", Null: true}, "default"},
		{"null toastsize", Cell{Name: "toastsize", Null: true}, "0"},
		{"null ToastSize mixed case", Cell{Name: "ToastSize", Null: true}, "0"},
		{"leading dot", Cell{Name: "ratio", Value: ".75"}, "0.75"},
		{"empty string stays", Cell{Name: "label", Value: ""}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeValue(tt.cell); got != tt.want {
				t.Errorf("NormalizeValue(%+v) = %q, want %q", tt.cell, got, tt.want)
			}
		})
	}
}

func TestIdentities(t *testing.T) {

	rows := []Row{
		{
			{Name: "datname", Value: "postgres"},
			{Name: "numbackends", Value: "3"},
			{Name: "ratio", Value: ".5"},
		},
		{
			{Name: "datname", Value: "template1"},
			{Name: "numbackends", Value: "0"},
			{Name: "ratio", Null: true},
		},
	}

	got := Identities(rows, "mon1")
	want := []string{
		"numbackends_mon1_",
		"ratio_mon1_",
		"numbackends_mon1_",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Identities = %v, want %v", got, want)
	}

	// deterministic across runs
	if again := Identities(rows, "mon1"); !reflect.DeepEqual(again, got) {
		t.Errorf("Identities not deterministic: %v vs %v", again, got)
	}
}

func TestIdentitiesEmptyRow(t *testing.T) {

	// an entirely empty row gets a synthetic non-numeric instance cell and
	// contributes no identities
	rows := []Row{{}, {{Name: "val", Value: "1"}}}

	got := Identities(rows, "mon1")
	want := []string{"val_mon1_"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Identities = %v, want %v", got, want)
	}
}

func TestPublishMap(t *testing.T) {

	rows := []Row{
		{
			{Name: "datname", Value: "postgres"},
			{Name: "numbackends", Value: "3"},
		},
		{
			{Name: "datname", Value: "template1"},
			{Name: "toastsize", Null: true},
		},
	}

	got := PublishMap(rows, "mon1", "conn1")
	want := map[string]string{
		"numbackends_mon1_conn1_0": "3",
		"toastsize_mon1_conn1_1":   "0",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PublishMap = %v, want %v", got, want)
	}
}

func TestRegistryKeys(t *testing.T) {

	got := RegistryKeys([]string{"val_mon1_", "cnt_mon1_"}, "conn1")
	want := []string{"val_mon1_conn1", "cnt_mon1_conn1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RegistryKeys = %v, want %v", got, want)
	}
	if got := RegistryKeys(nil, "conn1"); len(got) != 0 {
		t.Errorf("RegistryKeys(nil) = %v, want empty", got)
	}
}
