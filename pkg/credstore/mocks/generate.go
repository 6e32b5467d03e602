// Package mocks holds gomock doubles for the credstore package.
//
// Regenerate after interface changes with:
//
//	go generate ./pkg/credstore/mocks
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=store_mock.go github.com/SmileSnow819/natours/pkg/credstore Store
