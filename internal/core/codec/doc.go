// Package codec 实现 MessageCodec
//
// 线上格式为 protobuf 编码（手写 protowire，不依赖生成代码），
// 字段编号见各 Marshal 函数。应用载荷一律为序列化 Message 的
// KeyAgreement 密文：
//
//	Encode(m, k) = Encrypt(Serialize(m), k)
//	Decode(c, k) = Deserialize(Decrypt(c, k))
//
// 解密错误（ErrNoSessionKey / ErrDecryptionFailure）原样透出，
// 解析错误统一包装为 ErrDeserializationFailure。
package codec
