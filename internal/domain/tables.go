package domain

var Tables = []interface{}{
	&Sneaker{},
	&Order{},
}
