// Package billing integrates Stripe subscriptions: hosted checkout and
// billing-portal session creation, plus webhook event processing that
// keeps the local subscriptions table in sync.
//
// The webhook path is the single writer for subscription state. API
// handlers never flip a tier directly; they create a checkout session
// and wait for checkout.session.completed to land.
package billing
