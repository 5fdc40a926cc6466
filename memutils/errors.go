package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number
// being tested is not a power of two. Zero does not count as a power of two.
var PowerOfTwoError error = errors.New("number must be a power of two")

// MultipleOfError is the error returned from CheckMultipleOf when the number being
// tested does not divide evenly by the required factor.
var MultipleOfError error = errors.New("number must be an exact multiple")
