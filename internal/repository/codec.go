package repository

import (
	"fmt"
	"reflect"

	"ticket-seating/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	decimalType    = reflect.TypeOf(decimal.Decimal{})
	ticketTypeType = reflect.TypeOf(models.TicketType{})
)

// NewRegistry returns the default bson registry with decimal prices stored as
// strings. Numbers and decimal128 values written by other tools decode as well,
// and ticket types stored with only an _id get it as their id.
func NewRegistry() *bsoncodec.Registry {
	reg := bson.NewRegistry()
	reg.RegisterTypeEncoder(decimalType, bsoncodec.ValueEncoderFunc(encodeDecimal))
	reg.RegisterTypeDecoder(decimalType, bsoncodec.ValueDecoderFunc(decodeDecimal))
	reg.RegisterTypeDecoder(ticketTypeType, bsoncodec.ValueDecoderFunc(decodeTicketType))
	return reg
}

// ticketTypeDocument decodes the fields of a ticket type next to its _id. The
// inline struct is filled field by field, so decodeTicketType is not reentered.
type ticketTypeDocument struct {
	models.TicketType `bson:",inline"`
	MongoID           any `bson:"_id,omitempty"`
}

func decodeTicketType(dc bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != ticketTypeType {
		return bsoncodec.ValueDecoderError{Name: "TicketTypeDecodeValue", Types: []reflect.Type{ticketTypeType}, Received: val}
	}
	if vr.Type() == bson.TypeNull {
		val.Set(reflect.Zero(ticketTypeType))
		return vr.ReadNull()
	}

	raw, err := bsonrw.Copier{}.CopyDocumentToBytes(vr)
	if err != nil {
		return err
	}
	var doc ticketTypeDocument
	if err := bson.UnmarshalWithRegistry(dc.Registry, raw, &doc); err != nil {
		return err
	}

	tt := doc.TicketType
	if tt.ID == "" {
		switch id := doc.MongoID.(type) {
		case string:
			tt.ID = id
		case primitive.ObjectID:
			tt.ID = id.Hex()
		}
	}
	val.Set(reflect.ValueOf(tt))
	return nil
}

func encodeDecimal(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != decimalType {
		return bsoncodec.ValueEncoderError{Name: "DecimalEncodeValue", Types: []reflect.Type{decimalType}, Received: val}
	}
	return vw.WriteString(val.Interface().(decimal.Decimal).String())
}

func decodeDecimal(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != decimalType {
		return bsoncodec.ValueDecoderError{Name: "DecimalDecodeValue", Types: []reflect.Type{decimalType}, Received: val}
	}

	var (
		d   decimal.Decimal
		err error
	)
	switch vr.Type() {
	case bson.TypeString:
		var s string
		if s, err = vr.ReadString(); err == nil {
			d, err = decimal.NewFromString(s)
		}
	case bson.TypeDouble:
		var f float64
		if f, err = vr.ReadDouble(); err == nil {
			d = decimal.NewFromFloat(f)
		}
	case bson.TypeInt32:
		var i int32
		if i, err = vr.ReadInt32(); err == nil {
			d = decimal.NewFromInt32(i)
		}
	case bson.TypeInt64:
		var i int64
		if i, err = vr.ReadInt64(); err == nil {
			d = decimal.NewFromInt(i)
		}
	case bson.TypeDecimal128:
		var d128 primitive.Decimal128
		if d128, err = vr.ReadDecimal128(); err == nil {
			d, err = decimal.NewFromString(d128.String())
		}
	case bson.TypeNull:
		err = vr.ReadNull()
	default:
		return fmt.Errorf("cannot decode %v into a decimal", vr.Type())
	}
	if err != nil {
		return err
	}

	val.Set(reflect.ValueOf(d))
	return nil
}
