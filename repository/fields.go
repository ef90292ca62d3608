/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"fmt"
	"reflect"

	"github.com/tomoncle/crudgate/types"
	"github.com/uptrace/bun"
)

// fieldsOf turns an input struct (or a Fields map) into the column values
// that were explicitly supplied. Struct columns come from the `bun` tags;
// nil pointers and nil map values count as "not supplied".
func fieldsOf(db bun.IDB, input any) (types.Fields, error) {
	switch in := input.(type) {
	case nil:
		return types.Fields{}, nil
	case types.Fields:
		return compact(in), nil
	case map[string]interface{}:
		return compact(in), nil
	}

	v := reflect.ValueOf(input)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return types.Fields{}, nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("repository: unsupported input type %T", input)
	}

	table := db.Dialect().Tables().Get(v.Type())
	values := make(types.Fields, len(table.Fields))
	for _, field := range table.Fields {
		if value, ok := explicitValue(field.Value(v)); ok {
			values[field.Name] = value
		}
	}
	return values, nil
}

func compact(in map[string]interface{}) types.Fields {
	out := make(types.Fields, len(in))
	for column, value := range in {
		if value == nil {
			continue
		}
		if v, ok := explicitValue(reflect.ValueOf(value)); ok {
			out[column] = v
		}
	}
	return out
}

func explicitValue(v reflect.Value) (interface{}, bool) {
	switch v.Kind() {
	case reflect.Invalid:
		return nil, false
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil, false
		}
		return v.Elem().Interface(), true
	default:
		return v.Interface(), true
	}
}
