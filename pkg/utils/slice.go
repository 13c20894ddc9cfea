package utils

// map each element in sli.
//
// args:
//   - sli : slice of `T`s
//   - mapper : mapping function from T to R
//
// return:
//
//	slice of `R`s. each element indexed `N` is given with `mapper(sli[N])` .
func Map[T any, R any](sli []T, mapper func(v T) R) []R {
	ret := make([]R, len(sli))
	for nth, v := range sli {
		ret[nth] = mapper(v)
	}
	return ret
}

// map each element in sli, stopping at the first error.
func MapUntilError[T any, R any](sli []T, mapper func(v T) (R, error)) ([]R, error) {
	ret := make([]R, len(sli))
	for nth, v := range sli {
		r, err := mapper(v)
		if err != nil {
			return nil, err
		}
		ret[nth] = r
	}
	return ret, nil
}

// filter elements match with predicator
//
// returns elements in vs which predicator evaluates as true, keeping order.
func Filter[T any](vs []T, predicator func(T) bool) []T {
	ret := []T{}
	for _, v := range vs {
		if predicator(v) {
			ret = append(ret, v)
		}
	}
	return ret
}

// apply all modifier operator
//
// args:
//   - value : modification subject
//   - modifier : modifier operator, which takes `*T` value and update it.
//
// returns:
//
//	value after modifier applied
func ApplyAll[T any](value *T, modifier ...func(*T) *T) *T {
	for _, mod := range modifier {
		value = mod(value)
	}
	return value
}
